package mongo

const (
	store      = "store"
	spaceTable = "spaces"
	jobTable   = "jobs"
	lockTable  = "informLock"
)

var indexData = []IndexData{
	newIndexData(spaceTable, "ID", true),
	newIndexData(jobTable, "ID", true),
	newIndexData(jobTable, "spaceID", false),
	newIndexData(lockTable, "ID", false)}
