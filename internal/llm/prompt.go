package llm

import (
	"regexp"
	"strings"
)

const DefaultEnhanceContext = "resume description"

// GeneratePrompt asks for a complete markdown resume. {instructions} and
// {profile} are substituted by BuildGeneratePrompt.
const GeneratePrompt = `You write professional resumes. Using the candidate profile below and following the user's instructions, write the resume in markdown.

User instructions:
{instructions}

Candidate profile:
{profile}

Output rules:
1. Reply with the resume text and nothing else. No preamble, notes, summaries of what you did or closing remarks.
2. Do not wrap the answer in a code block.
3. Stop after the final resume section.

Formatting:
1. Use "# " for the candidate's name and "## " for section titles.
2. Put responsibilities and achievements in "- " bullet lists.
3. Use **bold** for job titles, employers and schools.
4. Write date ranges like "Mar 2021 - Present" or "Jan 2019 - Feb 2021".
5. Keep one blank line between sections.

Sections to include when the profile has the data:
- the candidate's full name as the top heading
- contact details (email, phone, location, links)
- ## Professional Summary
- ## Work Experience, each role with employer, title, dates and achievement bullets
- ## Education
- ## Skills, grouped by category where it makes sense
- ## Projects
- ## Certifications
- ## Languages`

// EnhancePrompt rewrites a fragment as polished resume wording.
const EnhancePrompt = `Rewrite the following {context} so it reads as strong, professional resume wording.

Text:
{text}

Rules:
- Keep every fact. Do not invent achievements, numbers or employers.
- Prefer active verbs and concise phrasing.
- Reply with the rewritten text only, without quotes, labels or explanations.`

// BuildGeneratePrompt fills GeneratePrompt.
func BuildGeneratePrompt(profileText, instructions string) string {
	if strings.TrimSpace(instructions) == "" {
		instructions = "Write a well-rounded resume for a general audience."
	}
	return strings.NewReplacer("{instructions}", instructions, "{profile}", profileText).Replace(GeneratePrompt)
}

// BuildEnhancePrompt fills EnhancePrompt.
func BuildEnhancePrompt(text, subject string) string {
	return strings.NewReplacer("{context}", subject, "{text}", text).Replace(EnhancePrompt)
}

var codeBlockRe = regexp.MustCompile("(?s)^```[^\\n]*\\n(.*?)\\s*```$")

// CleanGenerated unwraps a resume the model returned inside a code fence.
func CleanGenerated(s string) string {
	s = strings.TrimSpace(s)
	if m := codeBlockRe.FindStringSubmatch(s); len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	return s
}

var (
	fenceLineRe    = regexp.MustCompile("(?m)^```.*\\n?")
	trailingFence  = regexp.MustCompile("(?m)```$")
	surroundQuotes = regexp.MustCompile(`^\s*["']|["']\s*$`)
)

// CleanEnhanced strips fence lines and a pair of surrounding quotes from an
// enhanced fragment.
func CleanEnhanced(s string) string {
	s = strings.TrimSpace(s)
	s = fenceLineRe.ReplaceAllString(s, "")
	s = trailingFence.ReplaceAllString(s, "")
	s = surroundQuotes.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}
