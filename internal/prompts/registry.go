package prompts

// Task is one kind of QA document the tool can generate.
type Task struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Task identifiers.
const (
	TaskBugTicket        = "create-bug-ticket"
	TaskTaskTicket       = "create-task-ticket"
	TaskTestApproach     = "create-test-approach"
	TaskTestPlan         = "create-test-plan"
	TaskTestCase         = "create-test-case"
	TaskCoverageAnalysis = "create-coverage-analysis"
)

var tasks = []Task{
	{TaskBugTicket, "Create Bug Ticket", "Generate a structured markdown bug report from a short description."},
	{TaskTaskTicket, "Create QA Task Ticket", "Generate a QA task ticket with scope, acceptance criteria, and implementation notes."},
	{TaskTestApproach, "Create Test Approach", "Generate a concise ISTQB-style test approach for a feature/ticket."},
	{TaskTestPlan, "Create Test Plan", "Generate a comprehensive test plan document for a feature/ticket."},
	{TaskTestCase, "Create Test Cases", "Generate manual test cases as a Markdown table for a feature/ticket."},
	{TaskCoverageAnalysis, "Create Coverage Analysis", "Analyze requirements vs test cases and output a test coverage analysis report."},
}

// Tasks returns the registry in display order.
func Tasks() []Task {
	out := make([]Task, len(tasks))
	copy(out, tasks)
	return out
}

// LookupTask finds a task by id.
func LookupTask(id string) (Task, bool) {
	for _, t := range tasks {
		if t.ID == id {
			return t, true
		}
	}
	return Task{}, false
}
