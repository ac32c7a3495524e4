package bigquery

import "cloud.google.com/go/bigquery"

var bucketSchema = bigquery.Schema{
	{Name: "key", Type: bigquery.StringFieldType, Required: true},
	{Name: "count", Type: bigquery.IntegerFieldType, Required: true},
}

// StatsSnapshotSchema is the layout of one daily catalog stats row.
var StatsSnapshotSchema = bigquery.Schema{
	{Name: "snapshot_date", Type: bigquery.DateFieldType, Required: true},
	{Name: "generated_at", Type: bigquery.TimestampFieldType, Required: true},
	{Name: "total_stacks", Type: bigquery.IntegerFieldType, Required: true},
	{Name: "pending_contributions", Type: bigquery.IntegerFieldType, Required: true},
	{Name: "total_users", Type: bigquery.IntegerFieldType, Required: true},
	{Name: "industry_stats", Type: bigquery.RecordFieldType, Repeated: true, Schema: bucketSchema},
	{Name: "scale_stats", Type: bigquery.RecordFieldType, Repeated: true, Schema: bucketSchema},
}
