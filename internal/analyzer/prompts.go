package analyzer

import "github.com/evidence-toolkit/evidence-toolkit-sub003/internal/models"

// Prompt text is versioned alongside the *PromptVersion constants in
// fingerprint.go: editing any string below must bump the matching version
// so cached analyses from the old wording are never mistaken for the new
// one (SPEC_FULL.md §9).

const documentSystemPrompt = `You are a forensic document analyst preparing evidence for a legal case.
Extract every person, organization, date, location, legal term, and notable
quoted statement. Assess sentiment, legal significance, and overall
confidence. Be precise: do not infer facts not present in the text.`

const emailSystemPrompt = `You are a forensic analyst reconstructing an email thread for a legal case.
Assess each participant's authority level and deference in their own
language, trace the communication pattern across the thread, and flag any
escalation. Do not infer facts not present in the thread.`

const imageSystemPrompt = `You are a forensic image analyst. Describe the scene, list detected
objects, transcribe any visible text verbatim, and assess this image's
potential evidentiary value. Do not speculate beyond what is visible.`

// domainAddenda supplements the document/email personas with case-type
// specific guidance, selected the same way the Summarizer's phase-B
// registry is (SPEC_FULL.md §4.9) — unknown/empty case types fall through
// to no addendum.
var domainAddenda = map[models.CaseType]string{
	models.CaseTypeWorkplace:  "This is a workplace dispute case. Pay particular attention to harassment, retaliation, and policy-violation language.",
	models.CaseTypeEmployment: "This is an employment case. Pay particular attention to termination rationale, performance narratives, and discriminatory language.",
	models.CaseTypeContract:   "This is a contract dispute case. Pay particular attention to obligations, breach allegations, and amendment history.",
}

func domainAddendum(caseType string) string {
	return domainAddenda[models.CaseType(caseType)]
}
