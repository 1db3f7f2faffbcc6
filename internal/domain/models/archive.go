package models

// ArchiveBatch groups buffered pipeline events for one flush.
type ArchiveBatch struct {
	Bars        []Bar
	Predictions []Prediction
	Outcomes    []Prediction
}

func (b ArchiveBatch) Len() int {
	return len(b.Bars) + len(b.Predictions) + len(b.Outcomes)
}

func (b *ArchiveBatch) Reset() {
	b.Bars = nil
	b.Predictions = nil
	b.Outcomes = nil
}
