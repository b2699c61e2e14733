package tasks

// User-facing messages for failed operations.
const (
	msgLoadTasks         = "Failed to load tasks. Please try again."
	msgCreateTask        = "Failed to create task. Please try again."
	msgUpdateTask        = "Failed to update task. Please try again."
	msgDeleteTask        = "Failed to delete task. Please try again."
	msgClearCompleted    = "Failed to clear completed tasks"
	msgLoadCategories    = "Failed to load categories. Please try again."
	msgCreateCategory    = "Failed to create category. Please try again."
	msgUpdateCategory    = "Failed to update category. Please try again."
	msgDeleteCategory    = "Failed to delete category. Please try again."
	msgRefreshTaskCounts = "Failed to refresh task counts. Please try again."
	msgLoadPage          = "Failed to load tasks. Please try again."
)

// OperationError is a failed store operation. Error returns the generic
// user-facing message; the cause is available through errors.Unwrap.
type OperationError struct {
	Message string
	Err     error
}

func (e *OperationError) Error() string {
	return e.Message
}

func (e *OperationError) Unwrap() error {
	return e.Err
}
