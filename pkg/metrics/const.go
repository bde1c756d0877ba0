package metrics

const (
	// StatusSucceed succeed
	StatusSucceed = "succeed"
	// StatusFailed failed
	StatusFailed = "failed"

	// OpSave place a new entity on one shard
	OpSave = "save"
	// OpCriteria broadcast a criteria read
	OpCriteria = "criteria"
	// OpQuery broadcast a query read
	OpQuery = "query"
	// OpUpdate broadcast an update statement
	OpUpdate = "update"
)
