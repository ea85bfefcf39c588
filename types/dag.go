package types

type StageGraph interface {
	AddStage(stage Stage) error
	/**
	 * AddRoute connects source to target for the given outcome.
	 * SUCCESS routes require source output type == target input type,
	 * RECOVERABLE_FAILURE routes require equal input types since the
	 * recovery stage receives the failing stage's input.
	 */
	AddRoute(source string, outcome Outcome, target string) error
	GetStage(name string) (Stage, error)
	IsTerminal(name string) (bool, error)
	// NextStages returns targets in route insertion order.
	NextStages(name string, outcome Outcome) ([]Stage, error)
	Validate() error
	RegisterObserver(observer Observer)

	Stages() []Stage
	Routes() []Route
	RenderDOT() string
}
