package stt

import (
	"context"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
)

// Interview audio is 16 kHz mono 16-bit linear PCM, the same format the
// ephemeral token hands to voice clients.
const (
	SampleRateHz = 16000
	Channels     = 1
	BitDepth     = 16
)

type GoogleSpeech struct {
	c *speech.Client
}

func NewGoogleSpeech(ctx context.Context) (*GoogleSpeech, error) {
	c, err := speech.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return &GoogleSpeech{c: c}, nil
}

func (g *GoogleSpeech) Close() error { return g.c.Close() }

func (g *GoogleSpeech) Transcribe(ctx context.Context, audio []byte, language string) (Transcript, error) {
	language = NormalizeLanguage(language)

	resp, err := g.c.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   speechpb.RecognitionConfig_LINEAR16,
			SampleRateHertz:            SampleRateHz,
			AudioChannelCount:          Channels,
			LanguageCode:               language,
			EnableAutomaticPunctuation: true,
			Model:                      "latest_long",
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	})
	if err != nil {
		return Transcript{}, err
	}

	// Results are consecutive segments; keep the top alternative of each.
	out := Transcript{Language: language}
	var confSum float64
	var n int
	for _, r := range resp.Results {
		if len(r.Alternatives) == 0 {
			continue
		}
		alt := r.Alternatives[0]
		if alt.Transcript == "" {
			continue
		}
		if out.Text != "" {
			out.Text += " "
		}
		out.Text += alt.Transcript
		confSum += float64(alt.Confidence)
		n++
	}
	if n > 0 {
		out.Confidence = confSum / float64(n)
	}
	return out, nil
}
