package ses

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	sesv2 "github.com/aws/aws-sdk-go-v2/service/sesv2"

	"github.com/shineum/smtp-mailsink/internal/mailstore"
)

// mockSESClient implements SendEmailAPI for testing.
type mockSESClient struct {
	sendFn    func(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
	callCount int
	lastInput *sesv2.SendEmailInput
}

func (m *mockSESClient) SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	m.callCount++
	m.lastInput = params
	if m.sendFn != nil {
		return m.sendFn(ctx, params, optFns...)
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("test-message-id")}, nil
}

func TestName(t *testing.T) {
	t.Parallel()
	s := NewWithClient("sender@example.com", &mockSESClient{})
	if got := s.Name(); got != "ses" {
		t.Errorf("Name(): got %q, want %q", got, "ses")
	}
}

func TestDeliver_RawMessage(t *testing.T) {
	t.Parallel()

	mock := &mockSESClient{}
	s := NewWithClient("sender@example.com", mock)

	body := "Subject: hi\r\n\r\nhello\r\nworld"
	if err := s.Deliver(context.Background(), "<c@d.com>", body); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if mock.callCount != 1 {
		t.Errorf("call count: got %d, want 1", mock.callCount)
	}

	input := mock.lastInput
	if got := *input.FromEmailAddress; got != "sender@example.com" {
		t.Errorf("FromEmailAddress: got %q, want %q", got, "sender@example.com")
	}
	if len(input.Destination.ToAddresses) != 1 || input.Destination.ToAddresses[0] != "c@d.com" {
		t.Errorf("ToAddresses: got %v, want [c@d.com]", input.Destination.ToAddresses)
	}
	if input.Content.Raw == nil {
		t.Fatal("expected raw content, got nil")
	}
	if input.Content.Simple != nil {
		t.Error("expected no simple content")
	}
	if got := string(input.Content.Raw.Data); got != body {
		t.Errorf("raw data: got %q, want %q", got, body)
	}
}

func TestDeliver_EmptyRecipient(t *testing.T) {
	t.Parallel()

	mock := &mockSESClient{}
	s := NewWithClient("sender@example.com", mock)

	for _, rcpt := range []string{"", "<>", "  < >  "} {

		rcpt := rcpt
		err := s.Deliver(context.Background(), rcpt, "body")
		if !errors.Is(err, ErrNoRecipient) {
			t.Errorf("Deliver(%q): got %v, want ErrNoRecipient", rcpt, err)
		}
	}
	if mock.callCount != 0 {
		t.Errorf("call count: got %d, want 0", mock.callCount)
	}
}

func TestDeliver_RetryOnError(t *testing.T) {
	t.Parallel()

	callCount := 0
	mock := &mockSESClient{
		sendFn: func(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
			callCount++
			if callCount <= 2 {
				return nil, errors.New("transient error")
			}
			return &sesv2.SendEmailOutput{MessageId: aws.String("ok")}, nil
		},
	}
	s := NewWithClient("sender@example.com", mock)

	if err := s.Deliver(context.Background(), "<c@d.com>", "Hello"); err != nil {
		t.Fatalf("expected success after retry, got: %v", err)
	}
	if callCount != 3 {
		t.Errorf("call count: got %d, want 3", callCount)
	}
}

func TestDeliver_AllRetriesExhausted(t *testing.T) {
	t.Parallel()

	mock := &mockSESClient{
		sendFn: func(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
			return nil, errors.New("persistent error")
		},
	}
	s := NewWithClient("sender@example.com", mock)

	err := s.Deliver(context.Background(), "<c@d.com>", "Hello")
	if err == nil {
		t.Fatal("expected error after all retries exhausted")
	}
	if !strings.Contains(err.Error(), "after 3 retries") {
		t.Errorf("error message: got %q, want to contain 'after 3 retries'", err.Error())
	}
	// 1 initial + 3 retries = 4 total
	if mock.callCount != 4 {
		t.Errorf("call count: got %d, want 4", mock.callCount)
	}
}

func TestDeliver_ContextCancelled(t *testing.T) {
	t.Parallel()

	mock := &mockSESClient{
		sendFn: func(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
			return nil, errors.New("error")
		},
	}
	s := NewWithClient("sender@example.com", mock)

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately

	err := s.Deliver(ctx, "<c@d.com>", "Hello")
	if err == nil {
		t.Fatal("expected error when context cancelled")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error: got %v, want wrapped context.Canceled", err)
	}
	if mock.callCount != 1 {
		t.Errorf("call count: got %d, want 1", mock.callCount)
	}
}

func TestBareAddress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  string
	}{
		{"<user@example.com>", "user@example.com"},
		{"  <user@example.com>  ", "user@example.com"},
		{"user@example.com", "user@example.com"},
		{"<>", ""},
		{"", ""},
	}

	for _, tt := range tests {

		tt := tt
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			got := bareAddress(tt.input)
			if got != tt.want {
				t.Errorf("bareAddress(%q): got %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestBackoffDelay(t *testing.T) {
	t.Parallel()

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
	}

	for _, tt := range tests {

		tt := tt
		if got := backoffDelay(tt.attempt); got != tt.want {
			t.Errorf("backoffDelay(%d): got %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestStoreInterface(t *testing.T) {
	t.Parallel()

	var _ mailstore.Store = (*Store)(nil)
}
