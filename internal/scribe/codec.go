package scribe

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
)

// Outgoing wire message. The empty-payload commit=true form is the explicit
// end-of-utterance sentinel and must stay distinguishable from a content
// chunk.
type inputAudioChunk struct {
	MessageType string `json:"message_type"`
	AudioBase64 string `json:"audio_base_64"`
	Commit      bool   `json:"commit"`
	SampleRate  int    `json:"sample_rate"`
}

// Incoming wire message. Transcript-bearing types carry the text in the
// nested result object.
type serverMessage struct {
	MessageType string        `json:"message_type"`
	Error       string        `json:"error,omitempty"`
	SessionID   string        `json:"session_id,omitempty"`
	Result      *serverResult `json:"result,omitempty"`
}

type serverResult struct {
	Transcript string `json:"transcript"`
}

// EncodeAudioChunk frames a non-committing PCM16 chunk as a text frame.
func EncodeAudioChunk(pcm []byte, sampleRate int) ([]byte, error) {
	msg := inputAudioChunk{
		MessageType: "input_audio_chunk",
		AudioBase64: base64.StdEncoding.EncodeToString(pcm),
		Commit:      false,
		SampleRate:  sampleRate,
	}
	return json.Marshal(msg)
}

// EncodeCommit frames the end-of-utterance sentinel: an empty payload with
// commit set.
func EncodeCommit(sampleRate int) ([]byte, error) {
	msg := inputAudioChunk{
		MessageType: "input_audio_chunk",
		AudioBase64: "",
		Commit:      true,
		SampleRate:  sampleRate,
	}
	return json.Marshal(msg)
}

// DecodeFrame parses one incoming text frame into an Event.
//
// The second return value reports whether an event was produced: frames of
// unrecognized types are logged and skipped without error. A malformed
// frame returns a ProtocolError; callers log and drop it, a frame loss
// never terminates the session.
func DecodeFrame(frame []byte) (Event, bool, error) {
	var msg serverMessage
	if err := json.Unmarshal(frame, &msg); err != nil {
		return Event{}, false, &ProtocolError{Err: err}
	}
	if msg.MessageType == "" {
		return Event{}, false, &ProtocolError{Err: fmt.Errorf("frame missing message_type")}
	}

	transcript := ""
	if msg.Result != nil {
		transcript = msg.Result.Transcript
	}

	switch msg.MessageType {
	case "session_started":
		log.Printf("codec: session started, id=%s", msg.SessionID)
		return Event{Kind: EventSessionStarted}, true, nil

	case "partial_transcript":
		return Event{Kind: EventPartial, Text: transcript}, true, nil

	case "committed_transcript", "committed_transcript_with_timestamps":
		return Event{Kind: EventCommitted, Text: transcript}, true, nil

	case "error":
		errMsg := msg.Error
		if errMsg == "" {
			errMsg = msg.MessageType
		}
		return Event{Kind: EventError, Err: &ServerError{Kind: msg.MessageType, Message: errMsg}}, true, nil

	case "auth_error":
		return Event{Kind: EventError, Err: &ServerError{Kind: msg.MessageType, Message: "authentication failed", Fatal: true}}, true, nil

	case "quota_exceeded_error":
		return Event{Kind: EventError, Err: &ServerError{Kind: msg.MessageType, Message: "quota exceeded", Fatal: true}}, true, nil

	default:
		log.Printf("codec: ignoring unknown message type: %s", msg.MessageType)
		return Event{}, false, nil
	}
}
