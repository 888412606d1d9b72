package format

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/airenas/spacego/internal/pkg/cmdapp"
	"github.com/airenas/spacego/internal/pkg/errs"
	"github.com/airenas/spacego/internal/pkg/llm"
	"github.com/airenas/spacego/internal/pkg/persistence"
	"github.com/pkg/errors"
)

const systemPrompt = `You are an expert at formatting transcripts from audio conversations.
Your task is to take a raw, unformatted transcript and convert it into a well-structured dialogue format with speaker identification and background analysis.

Instructions:
1. Identify different speakers based on context, tone, and content
2. Assign clear speaker labels (use real names if you can infer them, otherwise use Speaker A, Speaker B, etc.)
3. Extract speaker background information from the conversation
4. Format the output as a structured dialogue
5. Preserve all content but organize it clearly
6. Remove filler words and clean up the text while maintaining the original meaning

Return your response as JSON with this structure:
{
  "participants": ["Speaker 1", "Speaker 2", ...],
  "speakerProfiles": [{"name": "Speaker 1", "background": "Brief background if inferrable"}, ...],
  "formattedText": "The full formatted dialogue"
}

Notes:
- If speaker information cannot be inferred, omit the background field
- Base all inferences on actual content from the transcript
- Keep background descriptions concise (1-2 sentences max)`

const maxParticipantHints = 10

// Data is a speaker attributed transcript
type Data struct {
	Participants    []string
	SpeakerProfiles []persistence.SpeakerProfile
	FormattedText   string
}

type completer interface {
	Complete(ctx context.Context, req *llm.Request) (*llm.Response, error)
}

// Formatter turns raw transcription text into a speaker attributed dialogue
type Formatter struct {
	llm completer
}

//NewFormatter creates a Formatter instance
func NewFormatter(llm completer) (*Formatter, error) {
	if llm == nil {
		return nil, errors.New("no llm client provided")
	}
	return &Formatter{llm: llm}, nil
}

type formatResponse struct {
	Participants    []string `json:"participants"`
	SpeakerProfiles []struct {
		Name       string `json:"name"`
		Background string `json:"background"`
	} `json:"speakerProfiles"`
	FormattedText string `json:"formattedText"`
}

// Format attributes speakers in the raw text. Title and known participant
// names are passed as hints only, the result is grounded in the transcript.
func (f *Formatter) Format(ctx context.Context, rawText string, title string, participantHints []string) (*Data, error) {
	cmdapp.Log.Infof("Formatting transcript, %d chars", len(rawText))
	resp, err := f.llm.Complete(ctx, &llm.Request{System: systemPrompt,
		User: userPrompt(rawText, title, participantHints), Temperature: 0.3, JSON: true})
	if err != nil {
		return nil, errors.Wrapf(errs.ErrFormatting, "can't format transcript: %v", err)
	}

	var fr formatResponse
	if err := json.Unmarshal([]byte(resp.Content), &fr); err != nil {
		return nil, errors.Wrapf(errs.ErrFormatting, "can't parse model response: %v", err)
	}
	if len(fr.Participants) == 0 || fr.FormattedText == "" {
		return nil, errors.Wrap(errs.ErrFormatting, "missing participants or formattedText in response")
	}

	res := &Data{Participants: fr.Participants, FormattedText: fr.FormattedText}
	for _, sp := range fr.SpeakerProfiles {
		res.SpeakerProfiles = append(res.SpeakerProfiles,
			persistence.SpeakerProfile{Name: sp.Name, Background: sp.Background})
	}
	if len(res.SpeakerProfiles) == 0 {
		for _, p := range fr.Participants {
			res.SpeakerProfiles = append(res.SpeakerProfiles, persistence.SpeakerProfile{Name: p})
		}
	}
	cmdapp.Log.Infof("Identified %d participants", len(res.Participants))
	return res, nil
}

func userPrompt(rawText string, title string, participantHints []string) string {
	sb := strings.Builder{}
	sb.WriteString("Please format this transcript from a Twitter Space")
	if title != "" {
		sb.WriteString(" titled \"" + title + "\"")
	}
	sb.WriteString(":")
	if len(participantHints) > maxParticipantHints {
		participantHints = participantHints[:maxParticipantHints]
	}
	if len(participantHints) > 0 {
		sb.WriteString("\n\nKnown participants (use these names when possible): ")
		sb.WriteString(strings.Join(participantHints, ", "))
	}
	sb.WriteString("\n\nRaw Transcript:\n")
	sb.WriteString(rawText)
	return sb.String()
}
