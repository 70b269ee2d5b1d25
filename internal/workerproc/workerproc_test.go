package workerproc

import (
	"testing"
)

func TestParseMessageEmptyBody(t *testing.T) {
	for _, body := range []string{"", "   "} {
		_, meta, err := ParseMessage(body)
		if _, ok := err.(ErrEmptyBody); !ok {
			t.Fatalf("ParseMessage(%q): got %T, want ErrEmptyBody", body, err)
		}
		if body == "" && meta.BodyLen != 0 {
			t.Fatalf("meta.BodyLen = %d, want 0", meta.BodyLen)
		}
	}
}

func TestParseMessageDecodeFailure(t *testing.T) {
	_, meta, err := ParseMessage("{not json")
	decodeErr, ok := err.(ErrDecode)
	if !ok {
		t.Fatalf("got %T, want ErrDecode", err)
	}
	if decodeErr.Err == nil {
		t.Fatal("ErrDecode should carry the underlying error")
	}
	if meta.BodySHA == "" || meta.BodyLen == 0 {
		t.Fatalf("meta not computed: %+v", meta)
	}
}

func TestParseMessageMissingApplicationID(t *testing.T) {
	_, _, err := ParseMessage(`{"stage":"SHORTLISTED","requestId":"req-1"}`)
	missingErr, ok := err.(ErrMissingApplicationID)
	if !ok {
		t.Fatalf("got %T, want ErrMissingApplicationID", err)
	}
	if missingErr.RequestID != "req-1" {
		t.Fatalf("RequestID = %q, want req-1", missingErr.RequestID)
	}
}

func TestParseMessageUnknownStage(t *testing.T) {
	_, _, err := ParseMessage(`{"applicationId":"app-1","stage":"HIRED","requestId":"req-1"}`)
	stageErr, ok := err.(ErrUnknownStage)
	if !ok {
		t.Fatalf("got %T, want ErrUnknownStage", err)
	}
	if stageErr.Stage != "HIRED" {
		t.Fatalf("Stage = %q, want HIRED", stageErr.Stage)
	}
}

func TestParseMessageValid(t *testing.T) {
	msg, meta, err := ParseMessage(`{"applicationId":"app-1","stage":"CONTRACT_SIGNED","requestId":"req-1","version":1}`)
	if err != nil {
		t.Fatalf("ParseMessage: %v", err)
	}
	if msg.ApplicationID != "app-1" || msg.Stage != "CONTRACT_SIGNED" {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if meta.BodySHA == "" {
		t.Fatal("meta.BodySHA should be set")
	}
}

func TestHandleMessageUnconfigured(t *testing.T) {
	if err := HandleMessage(nil, nil, "{}"); err == nil {
		t.Fatal("HandleMessage with nil app should fail")
	}
}
