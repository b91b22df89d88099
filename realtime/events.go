package realtime

import (
	"encoding/json"
	"fmt"

	"github.com/klauspost/compress/zstd"

	"huddle/models"
)

// Envelope is the wire format of a pushed event
type Envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// Decoder turns raw websocket frames into typed events, decompressing
// zstd frames when the channel negotiated compression.
type Decoder struct {
	zstd *zstd.Decoder
}

func NewDecoder(compress bool) (*Decoder, error) {
	d := &Decoder{}
	if compress {
		decoder, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
		}
		d.zstd = decoder
	}
	return d, nil
}

// Decode parses a raw message into one of the typed event structs from
// the models package. Unknown event names return (nil, nil) so callers
// can skip them without logging an error per message.
func (d *Decoder) Decode(msg *RawMessage) (interface{}, error) {
	data := msg.Data
	if d.zstd != nil {
		decompressed, err := d.zstd.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress message: %w", err)
		}
		data = decompressed
	}

	var envelope Envelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event envelope: %w", err)
	}

	switch envelope.Event {
	case models.EventNewPost:
		var post models.Post
		if err := json.Unmarshal(envelope.Payload, &post); err != nil {
			return nil, fmt.Errorf("failed to unmarshal new_post payload: %w", err)
		}
		return models.NewPostEvent{Post: post}, nil

	case models.EventUpdateReaction:
		var event models.UpdateReactionEvent
		if err := json.Unmarshal(envelope.Payload, &event); err != nil {
			return nil, fmt.Errorf("failed to unmarshal update_reaction payload: %w", err)
		}
		return event, nil

	case models.EventNewComment:
		var comment models.Comment
		if err := json.Unmarshal(envelope.Payload, &comment); err != nil {
			return nil, fmt.Errorf("failed to unmarshal new_comment payload: %w", err)
		}
		return models.NewCommentEvent{Comment: comment}, nil
	}

	return nil, nil
}
