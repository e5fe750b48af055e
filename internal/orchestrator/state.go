package orchestrator

// Phase is one state in the ReAct loop's state machine (spec.md §4.1):
//
//	Idle -> Planning -> AwaitingTool -> Planning (loop)
//	Planning -> Reflecting -> Planning (on refusal)
//	Planning -> AwaitingApproval -> AwaitingTool (on risky tool call)
//	any state -> Terminal (budget, fatal error, or final response)
type Phase string

const (
	PhaseIdle             Phase = "idle"
	PhasePlanning         Phase = "planning"
	PhaseAwaitingTool     Phase = "awaiting_tool"
	PhaseAwaitingApproval Phase = "awaiting_approval"
	PhaseReflecting       Phase = "reflecting"
	PhaseFinalizing       Phase = "finalizing"
	PhaseTerminal         Phase = "terminal"
)
