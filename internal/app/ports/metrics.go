package ports

type WorldMetrics interface {
	RecordCollect()
	RecordDeposit()
	RecordRejected(reason string)
	RecordSpawn(caches int)
	RecordSave(err error)
}
