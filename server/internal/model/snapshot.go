package model

// EventRecord 暴露给展示层的事件快照。
type EventRecord struct {
	Role        Role       `json:"role"`
	StageID     string     `json:"stage_id"`
	Text        string     `json:"text"`
	TimestampMS int64      `json:"timestamp_ms"`
	Action      Action     `json:"action,omitempty"`
	ChartSpec   *ChartSpec `json:"chart_spec,omitempty"`
}

// Snapshot 复制事件日志，调用方可以随意持有。
func Snapshot(events []Event) []EventRecord {
	out := make([]EventRecord, 0, len(events))
	for _, e := range events {
		out = append(out, EventRecord{
			Role:        e.Role,
			StageID:     e.StageID,
			Text:        e.Text,
			TimestampMS: e.TS.UnixMilli(),
			Action:      e.Action,
			ChartSpec:   e.ChartSpec,
		})
	}
	return out
}
