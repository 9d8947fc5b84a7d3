package types

import "time"

type Transcript struct {
	Language string    `json:"language,omitempty"`
	Segments []Segment `json:"segments"`
}

// Segment is one ASR segment. Confidence is nil when the recognizer gives no
// score.
type Segment struct {
	ID         int      `json:"id"`
	Start      float64  `json:"start"`
	End        float64  `json:"end"`
	Text       string   `json:"text"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// End returns the end of the last segment, or 0.
func (t Transcript) End() float64 {
	var end float64
	for _, s := range t.Segments {
		if s.End > end {
			end = s.End
		}
	}
	return end
}

// AudioTrack is the mono lav-mic asset the transcript is taken from.
// Duration is the asset's declared length in seconds, 0 when absent.
type AudioTrack struct {
	AssetID  string  `json:"asset_id"`
	Name     string  `json:"name"`
	Path     string  `json:"path"`
	Channels int     `json:"channels"`
	Duration float64 `json:"duration"`
}

type CleaningStats struct {
	OriginalSegmentCount int     `json:"original_segment_count"`
	CleanedSegmentCount  int     `json:"cleaned_segment_count"`
	SegmentsRemoved      int     `json:"segments_removed"`
	OriginalDuration     float64 `json:"original_duration"`
	CleanedDuration      float64 `json:"cleaned_duration"`
	TimeSaved            float64 `json:"time_saved"`
	TimeSavedPercent     float64 `json:"time_saved_percentage"`
	OriginalWordCount    int     `json:"original_word_count"`
	CleanedWordCount     int     `json:"cleaned_word_count"`
	WordsRemoved         int     `json:"words_removed"`
}

// CutMetadata summarizes a cut plan for reporting.
type CutMetadata struct {
	OriginalDuration float64 `json:"original_duration"`
	CleanedDuration  float64 `json:"cleaned_duration"`
	CutCount         int     `json:"cut_count"`
	KeepCount        int     `json:"keep_count"`
}

type TakeGroupSummary struct {
	CommonContent string `json:"common_content"`
	BestTakeIndex int    `json:"best_take_index"`
	SegmentCount  int    `json:"segment_count"`
}

// CutProject names the generated project. Version, Clips and Frames come
// from the check of the written document; Frames counts the sequence length
// at its frame rate.
type CutProject struct {
	Name    string `json:"name"`
	UID     string `json:"uid"`
	Version string `json:"fcpxml_version,omitempty"`
	Clips   int    `json:"clips"`
	Frames  int64  `json:"frames"`
}

// Report is written next to the generated project.
type Report struct {
	GeneratedBy     string             `json:"generated_by"`
	GenerationTime  time.Time          `json:"generation_time"`
	Input           string             `json:"input"`
	Output          string             `json:"output"`
	Project         CutProject         `json:"project"`
	FrameRate       string             `json:"frame_rate"`
	Cut             CutMetadata        `json:"cut"`
	TimeSaved       float64            `json:"time_saved"`
	SegmentsKept    int                `json:"segments_kept"`
	NothingSurvived bool               `json:"nothing_survived"`
	CleaningLevel   string             `json:"cleaning_level"`
	CleaningStats   CleaningStats      `json:"cleaning_stats"`
	TakeGroups      []TakeGroupSummary `json:"take_groups"`
	Edited          bool               `json:"edited"`
	EditProfile     string             `json:"edit_profile,omitempty"`
	TranscriptCache string             `json:"transcript_cache,omitempty"`
}
