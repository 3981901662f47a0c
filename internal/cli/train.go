package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"trendBot/internal/classifier"
	"trendBot/internal/strategy/features"
)

func newTrainCmd(s *session) *cobra.Command {
	var (
		datasetPath string
		opts        = classifier.DefaultTrainOptions()
	)
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train the entry classifier on the feature dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if datasetPath == "" {
				datasetPath = s.datasetPath()
			}
			f, err := os.Open(datasetPath)
			if err != nil {
				return fmt.Errorf("failed to open dataset (run `trendbot features`): %w", err)
			}
			rows, err := features.ReadCSV(f)
			f.Close()
			if err != nil {
				return err
			}

			model, report, err := classifier.Train(rows, opts)
			if err != nil {
				return err
			}
			if err := model.Save(s.modelPath()); err != nil {
				return fmt.Errorf("failed to save model: %w", err)
			}
			s.logger.Info(ctx, "Classifier trained", map[string]interface{}{"rows": len(rows), "model": s.modelPath()})

			fmt.Fprintf(s.out, "Train rows:     %d\n", report.TrainRows)
			fmt.Fprintf(s.out, "Test rows:      %d\n", report.TestRows)
			fmt.Fprintf(s.out, "Positive rate:  %.2f%%\n", report.PositiveRate*100)
			fmt.Fprintf(s.out, "Train accuracy: %.2f%%\n", report.TrainAccuracy*100)
			fmt.Fprintf(s.out, "Test accuracy:  %.2f%%\n", report.TestAccuracy*100)
			fmt.Fprintf(s.out, "Model saved to %s\n", s.modelPath())
			return nil
		},
	}
	cmd.Flags().StringVar(&datasetPath, "dataset", "", "dataset CSV path (default DATA_DIR/dataset.csv)")
	cmd.Flags().IntVar(&opts.Epochs, "epochs", opts.Epochs, "gradient descent epochs")
	cmd.Flags().Float64Var(&opts.LearningRate, "lr", opts.LearningRate, "learning rate")
	cmd.Flags().Float64Var(&opts.L2, "l2", opts.L2, "L2 penalty")
	cmd.Flags().Float64Var(&opts.TestFraction, "test-fraction", opts.TestFraction, "share of rows held out")
	cmd.Flags().Int64Var(&opts.Seed, "seed", opts.Seed, "shuffle seed")
	return cmd
}
