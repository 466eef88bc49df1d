package correlation

import (
	"sort"
	"time"

	"github.com/evidence-toolkit/evidence-toolkit-sub003/internal/models"
)

// dateEntityTypes are the Entity kinds ExtractTimelineEvents treats as
// dated occurrences worth sequencing, alongside each analysis's own
// AnalysisTimestamp.
var dateEntityTypes = map[models.EntityType]bool{
	models.EntityDate: true,
}

// ExtractTimelineEvents builds one TimelineEvent per analysis
// (AnalysisTimestamp) plus one per extracted date-typed entity, per §4.8.4
// step 1. Events with a zero timestamp are dropped — they carry no
// sequencing information.
func ExtractTimelineEvents(analyses []models.UnifiedAnalysis) []models.TimelineEvent {
	var events []models.TimelineEvent
	for _, a := range analyses {
		if !a.AnalysisTimestamp.IsZero() {
			events = append(events, models.TimelineEvent{
				Timestamp:   a.AnalysisTimestamp,
				EvidenceId:  a.EvidenceId,
				EventType:   string(a.EvidenceType),
				Description: eventDescription(a),
				Confidence:  1.0,
			})
		}
		if a.Document == nil {
			continue
		}
		for _, e := range a.Document.Entities {
			if !dateEntityTypes[e.Type] {
				continue
			}
			ts, ok := parseEntityDate(e.Name)
			if !ok {
				continue
			}
			events = append(events, models.TimelineEvent{
				Timestamp:   ts,
				EvidenceId:  a.EvidenceId,
				EventType:   "mentioned_date",
				Description: e.Context,
				Confidence:  e.Confidence,
			})
		}
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})
	return events
}

func eventDescription(a models.UnifiedAnalysis) string {
	switch {
	case a.Document != nil:
		return a.Document.DocumentType
	case a.Email != nil:
		return "email thread"
	case a.Image != nil:
		return a.Image.SceneDescription
	}
	return ""
}

// parseEntityDate attempts the handful of date layouts a forensic entity
// extraction commonly yields. A date entity the model could not format is
// skipped rather than failing the whole timeline.
func parseEntityDate(s string) (time.Time, bool) {
	for _, layout := range []string{"2006-01-02", time.RFC3339, "January 2, 2006", "Jan 2, 2006", "01/02/2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// BuildSequences groups sorted events into maximal runs where consecutive
// events are within sequenceWindowDays of each other (§4.8.4). Only the
// spacing is compared: events that share a named entity but lie further
// apart than the window start separate sequences. A singleton event (no
// neighbor within the window) still yields its own one-event sequence so
// every event belongs to exactly one sequence.
func BuildSequences(events []models.TimelineEvent, sequenceWindowDays int) []models.TemporalSequence {
	if len(events) == 0 {
		return nil
	}
	window := float64(sequenceWindowDays) * 24 * 3600

	var sequences []models.TemporalSequence
	current := []models.TimelineEvent{events[0]}
	for i := 1; i < len(events); i++ {
		gap := events[i].Timestamp.Sub(events[i-1].Timestamp).Seconds()
		if gap <= window {
			current = append(current, events[i])
			continue
		}
		sequences = append(sequences, models.TemporalSequence{Events: current})
		current = []models.TimelineEvent{events[i]}
	}
	sequences = append(sequences, models.TemporalSequence{Events: current})
	return sequences
}

// BuildGaps reports every interval between consecutive sorted events that
// exceeds gapThresholdDays, classified by severity: >90 days is high, >30
// days is medium, otherwise low (§4.8.4, §8 scenario S5).
func BuildGaps(events []models.TimelineEvent, gapThresholdDays int) []models.TimelineGap {
	var gaps []models.TimelineGap
	threshold := float64(gapThresholdDays)
	for i := 1; i < len(events); i++ {
		days := events[i].Timestamp.Sub(events[i-1].Timestamp).Hours() / 24
		if days <= threshold {
			continue
		}
		gaps = append(gaps, models.TimelineGap{
			Start:        events[i-1].Timestamp,
			End:          events[i].Timestamp,
			Days:         days,
			Significance: gapSeverity(days),
		})
	}
	return gaps
}

func gapSeverity(days float64) models.GapSignificance {
	switch {
	case days > 90:
		return models.GapHigh
	case days > 30:
		return models.GapMedium
	default:
		return models.GapLow
	}
}
