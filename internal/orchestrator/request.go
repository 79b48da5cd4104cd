package orchestrator

import (
	"voicequeue/internal/lines"
	"voicequeue/internal/session"
	"voicequeue/internal/ttsclient"
)

type ttsBatchItem struct {
	id         string
	text       string
	voiceID    string
	outputPath string
}

func ttsRequest(line lines.Line, voiceID, outputPath string, settings session.Settings) ttsclient.SynthesizeRequest {
	modelID := line.ModelID
	if modelID == "" {
		modelID = settings.ModelID
	}
	return ttsclient.SynthesizeRequest{
		Text:       line.Text,
		VoiceID:    voiceID,
		ModelID:    modelID,
		OutputPath: outputPath,
		Settings:   settings.Voice,
	}
}

func batchRequest(items []ttsBatchItem, concurrency int, settings session.Settings) ttsclient.BatchRequest {
	req := ttsclient.BatchRequest{
		Items:       make([]ttsclient.BatchItem, 0, len(items)),
		Concurrency: concurrency,
		ModelID:     settings.ModelID,
		Settings:    settings.Voice,
	}
	for _, item := range items {
		req.Items = append(req.Items, ttsclient.BatchItem{
			ID:         item.id,
			Text:       item.text,
			VoiceID:    item.voiceID,
			OutputPath: item.outputPath,
		})
	}
	return req
}
