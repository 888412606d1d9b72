package status

//Status represents space processing state
type Status int

const (
	//Pending - created, no processing has started
	Pending Status = iota + 1
	//Processing - claimed by the worker
	Processing
	//Completed - transcript and metadata persisted
	Completed
	//Failed - terminal failure for the job's retry budget
	Failed
)

var (
	statusName = map[Status]string{Pending: "pending", Processing: "processing",
		Completed: "completed", Failed: "failed"}
	nameStatus = map[string]Status{"pending": Pending, "processing": Processing,
		"completed": Completed, "failed": Failed}
)

//Name returns string representation of the status
func Name(st Status) string {
	return statusName[st]
}

//From converts string to status, returns 0 for unknown value
func From(st string) Status {
	return nameStatus[st]
}
