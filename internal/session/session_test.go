package session

import (
	"testing"

	"github.com/kaelgw/realtime-gateway/internal/protocol"
)

func TestApplyConfigRejectsUnsupportedInputFormat(t *testing.T) {
	s := New("sess_1", protocol.SessionConfig{})
	err := s.ApplyConfig(&protocol.SessionConfig{InputAudioFormat: "g711_ulaw"})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if err.Code != "unsupported_audio_format" || err.Param != "input_audio_format" {
		t.Fatalf("unexpected error shape: %+v", err)
	}
	if s.Config.InputAudioFormat != "" {
		t.Fatal("config must not be mutated on validation failure")
	}
}

func TestApplyConfigRejectsServerVAD(t *testing.T) {
	s := New("sess_1", protocol.SessionConfig{})
	err := s.ApplyConfig(&protocol.SessionConfig{
		TurnDetection: &protocol.TurnDetection{Type: "server_vad"},
	})
	if err == nil || err.Code != "unsupported_turn_detection" {
		t.Fatalf("expected unsupported_turn_detection, got %+v", err)
	}
}

func TestApplyConfigMergesAccepted(t *testing.T) {
	s := New("sess_1", protocol.SessionConfig{})
	err := s.ApplyConfig(&protocol.SessionConfig{Instructions: "be nice"})
	if err != nil {
		t.Fatalf("unexpected error: %+v", err)
	}
	if s.Config.Instructions != "be nice" {
		t.Fatalf("instructions not merged: %+v", s.Config)
	}
}

func TestTakeAudioAtomicSwap(t *testing.T) {
	s := New("sess_1", protocol.SessionConfig{})
	s.AppendAudio([]byte{1, 2, 3})
	taken := s.TakeAudio()
	if len(taken) != 3 {
		t.Fatalf("taken length = %d, want 3", len(taken))
	}
	if again := s.TakeAudio(); len(again) != 0 {
		t.Fatalf("second take should be empty, got %d bytes", len(again))
	}
}

func TestGeneratingFlag(t *testing.T) {
	s := New("sess_1", protocol.SessionConfig{})
	if s.IsGenerating() {
		t.Fatal("new session should not be generating")
	}
	s.SetGenerating(true)
	if !s.IsGenerating() {
		t.Fatal("expected generating true")
	}
}

func TestLastRoleEmptyHistory(t *testing.T) {
	s := New("sess_1", protocol.SessionConfig{})
	if s.LastRole() != "" {
		t.Fatalf("expected empty role, got %q", s.LastRole())
	}
	s.History.PushAssistant("hi")
	if s.LastRole() != "assistant" {
		t.Fatalf("expected assistant, got %q", s.LastRole())
	}
}
