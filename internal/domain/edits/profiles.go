// Package edits holds the LLM editing profiles and maps an edited transcript
// back onto the timed segments it came from.
package edits

import "strings"

const DefaultProfile = "tutorial"

const transcriptSlot = "{transcript}"

// Profile is one editing style. Template carries a {transcript} slot.
type Profile struct {
	Key                     string `json:"key"`
	Name                    string `json:"name"`
	Description             string `json:"description"`
	Template                string `json:"-"`
	PreserveNavigation      bool   `json:"preserve_navigation"`
	PreservePauses          bool   `json:"preserve_pauses"`
	AggressiveFillerRemoval bool   `json:"aggressive_filler_removal"`
}

func (p Profile) Prompt(transcript string) string {
	return strings.Replace(p.Template, transcriptSlot, transcript, 1)
}

const returnOnly = `

Original transcript:
{transcript}

Return only the cleaned transcript, with no commentary before or after it.`

var profiles = []Profile{
	{
		Key:         "scripted",
		Name:        "Scripted Recording",
		Description: "For recordings with a prepared script. Minimal editing, preserve performance.",
		Template: `You are preparing a first-pass edit of a scripted video. The speaker has a prepared script, so most content is intentional.

REMOVE ONLY:
1. Complete false starts or restarts
2. Technical issues or interruptions
3. Obvious mistakes or corrections

KEEP EVERYTHING ELSE:
- All scripted content
- Natural pauses and pacing
- Navigation time between UI elements
- Slight variations (may be intentional)
- Natural filler words that maintain rhythm

This is a polished recording that needs minimal editing.` + returnOnly,
		PreserveNavigation: true,
		PreservePauses:     true,
	},
	{
		Key:         "tutorial",
		Name:        "Tutorial/Demo",
		Description: "For tutorial recordings with natural explanations. Balanced editing.",
		Template: `You are preparing a first-pass edit of a tutorial/demo video. Create a smooth, comprehensive script.

REMOVE ONLY:
1. Complete false starts where the speaker restarts
2. Technical issues or off-topic asides
3. Excessive filler words that disrupt flow
4. Exact duplicate explanations
5. Abandoned thoughts

ALWAYS KEEP:
1. Navigation time while moving between UI elements
2. Natural pauses for viewer comprehension
3. Variations in explanation
4. Complete teaching narrative
5. Intentional emphasis

Preserve natural pacing and smooth transitions.` + returnOnly,
		PreserveNavigation: true,
		PreservePauses:     true,
	},
	{
		Key:         "rough",
		Name:        "Rough Recording",
		Description: "For unscripted, impromptu recordings. More aggressive editing.",
		Template: `You are editing a rough, unscripted recording. Remove redundancy while keeping the core message.

REMOVE:
1. All false starts and restarts
2. Excessive filler words (um, uh, like, you know)
3. Repeated explanations (keep the best one)
4. Rambling or circular thoughts
5. Off-topic tangents

KEEP:
1. Core information and key points
2. The clearest explanation of each concept
3. Navigation pauses (for UI recordings)
4. Natural transitions between topics

Focus on clarity and conciseness.` + returnOnly,
		PreserveNavigation:      true,
		AggressiveFillerRemoval: true,
	},
	{
		Key:         "podcast",
		Name:        "Podcast/Interview",
		Description: "For conversational recordings. Preserve natural speech patterns.",
		Template: `You are editing a conversational recording. Keep the natural flow while removing disruptions.

REMOVE ONLY:
1. Technical issues or interruptions
2. Completely broken thoughts
3. Excessive verbal tics that distract

KEEP:
1. Natural conversational flow
2. Personality and speaking style
3. Thoughtful pauses
4. Natural filler words that maintain rhythm
5. All substantive content

Preserve the authentic conversation.` + returnOnly,
		PreservePauses: true,
	},
	{
		Key:         "aggressive",
		Name:        "Aggressive Edit",
		Description: "Maximum cutting for very rough recordings. Create tight, concise output.",
		Template: `You are aggressively editing a very rough recording. Create a tight, concise version.

AGGRESSIVELY REMOVE:
1. ALL filler words and verbal tics
2. ALL false starts and restarts
3. ANY repetition or redundancy
4. Thinking pauses and hesitations
5. Verbose explanations (keep only the most concise)

KEEP ONLY:
1. Essential information
2. The most concise explanation of each point
3. Clear, complete thoughts
4. Navigation markers (if UI recording)

Aim for maximum clarity and brevity.` + returnOnly,
		PreserveNavigation:      true,
		AggressiveFillerRemoval: true,
	},
}

// Profiles returns every profile in display order.
func Profiles() []Profile {
	return append([]Profile(nil), profiles...)
}

// ProfileFor looks name up case-insensitively. Unknown names get the
// tutorial profile and ok=false.
func ProfileFor(name string) (p Profile, ok bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	var def Profile
	for _, p := range profiles {
		if p.Key == key {
			return p, true
		}
		if p.Key == DefaultProfile {
			def = p
		}
	}
	return def, false
}
