package ai

import "strings"

const (
	PlaceholderProfile      = "{profile}"
	PlaceholderSimilarities = "{similarities}"
	PlaceholderActivityID   = "{activityId}"
	PlaceholderCandidates   = "{candidates}"
	PlaceholderUserID       = "{userId}"
)

const ProfileAnalysisTemplate = `You analyze participant profiles for an offline activity.
Profile:
{profile}

Task: extract the participant's interests, personality traits and preferences.
Respond with JSON only, no markdown:
{"interests": ["..."], "personality_traits": ["..."], "preferences": ["..."]}`

const MatchExplanationTemplate = `Two participants of activity {activityId} were matched.
Profiles:
{profile}

What they have in common:
{similarities}

Task: for each participant write a short, friendly explanation (1-2 sentences) of why the other person is a good match,
and one icebreaker question they could start the conversation with.
Language: Russian.
Respond with JSON only, no markdown:
{"explanation_for_profile_1": "...", "explanation_for_profile_2": "...", "icebreaker_for_profile_1": "...", "icebreaker_for_profile_2": "..."}`

const CandidateRankingTemplate = `Participant {userId} of activity {activityId} is looking for a partner.
Participant profile:
{profile}

Candidates:
{candidates}

Task: score how well every candidate fits the participant from 0 to 100.
Respond with a JSON array only, no markdown:
[{"id": 123, "score": 87}]`

// Fill substitutes placeholders in template. Unknown placeholders are left untouched.
func Fill(template string, values map[string]string) string {
	out := template
	for key, value := range values {
		out = strings.ReplaceAll(out, key, value)
	}
	return out
}
