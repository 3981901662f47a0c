package domain

// CloseReason indicates why a position was closed.
type CloseReason string

const (
	CloseReasonStopLoss   CloseReason = "SL"
	CloseReasonTakeProfit CloseReason = "TP"
	CloseReasonSignal     CloseReason = "Signal" // Strategy-driven exit
	CloseReasonManual     CloseReason = "Manual"
)

// EntryOutcome reports what a single entry attempt (or bar step) resulted in.
// Skips are not errors; they are returned so callers can count and assert on them.
type EntryOutcome int

const (
	OutcomeNoSignal EntryOutcome = iota
	OutcomeOpened
	OutcomeAlreadyOpen
	OutcomeSkippedInsufficientCapital
	OutcomeSkippedInvalidStop
	OutcomeSkippedVetoed
	OutcomeSkippedZeroSize
	OutcomeExited // An open position was closed on this bar
)

var outcomeNames = map[EntryOutcome]string{
	OutcomeNoSignal:                   "NoSignal",
	OutcomeOpened:                     "Opened",
	OutcomeAlreadyOpen:                "AlreadyOpen",
	OutcomeSkippedInsufficientCapital: "SkippedInsufficientCapital",
	OutcomeSkippedInvalidStop:         "SkippedInvalidStop",
	OutcomeSkippedVetoed:              "SkippedVetoed",
	OutcomeSkippedZeroSize:            "SkippedZeroSize",
	OutcomeExited:                     "Exited",
}

func (o EntryOutcome) String() string {
	if name, ok := outcomeNames[o]; ok {
		return name
	}
	return "Unknown"
}
