package common

const (
	// Persisted table columns, in file order.
	ColumnTitle                   = "title"
	ColumnURL                     = "url"
	ColumnSourceDomain            = "source_domain"
	ColumnDescription             = "description"
	ColumnAuthors                 = "authors"
	ColumnDatePublish             = "date_publish"
	ColumnAverageSentencePolarity = "average_sentence_polarity"
	ColumnMainText                = "maintext"

	RedisScoreCachePrefix = "sentiment:score:"

	RedisStreamPipelineRuns = "pipeline:runs"
	RedisStreamGroup        = "pipeline-workers"
	RedisStreamConsumer     = "pipeline-worker"

	RunTriggerManual   = "manual"
	RunTriggerSchedule = "schedule"
)

// TableHeader is the exact header row of the persisted article table.
var TableHeader = []string{
	ColumnTitle,
	ColumnURL,
	ColumnSourceDomain,
	ColumnDescription,
	ColumnAuthors,
	ColumnDatePublish,
	ColumnAverageSentencePolarity,
	ColumnMainText,
}

// DefaultTopics are the policy keywords charted by the explore command.
var DefaultTopics = []string{"vaccine", "mask", "mandate", "restriction", "border closure"}
