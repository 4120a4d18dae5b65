package models

import (
	"reflect"
	"testing"
)

func strPtr(s string) *string { return &s }

func TestCredentialKeyFor(t *testing.T) {
	cred := &Credential{
		OpenAIKey: strPtr("sk-test"),
		GroqKey:   strPtr("gsk-test"),
	}

	tests := []struct {
		provider string
		want     string
	}{
		{ProviderOpenAI, "sk-test"},
		{ProviderGroq, "gsk-test"},
		{ProviderAnthropic, ""},
		{ProviderGemini, ""},
		{ProviderGrok, ""},
		{ProviderMistral, ""},
		{"bogus", ""},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			if got := cred.KeyFor(tt.provider); got != tt.want {
				t.Errorf("KeyFor(%q) = %q, want %q", tt.provider, got, tt.want)
			}
		})
	}
}

func TestCredentialSetKeyForRoundTrip(t *testing.T) {
	cred := &Credential{}
	for _, p := range ProviderIDs {
		cred.SetKeyFor(p, "key-"+p)
	}
	for _, p := range ProviderIDs {
		if got := cred.KeyFor(p); got != "key-"+p {
			t.Errorf("KeyFor(%q) = %q after SetKeyFor", p, got)
		}
	}
}

func TestCredentialConfiguredProviders(t *testing.T) {
	cred := &Credential{
		AnthropicKey: strPtr("ak"),
		MistralKey:   strPtr("mk"),
	}

	got := cred.ConfiguredProviders()
	want := []string{ProviderAnthropic, ProviderMistral}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ConfiguredProviders() = %v, want %v", got, want)
	}

	if !cred.HasAnyProviderKey() {
		t.Error("HasAnyProviderKey() = false, want true")
	}

	empty := &Credential{}
	if empty.HasAnyProviderKey() {
		t.Error("HasAnyProviderKey() on empty credential = true, want false")
	}
}

func TestKnownProvider(t *testing.T) {
	for _, p := range ProviderIDs {
		if !KnownProvider(p) {
			t.Errorf("KnownProvider(%q) = false", p)
		}
	}
	if KnownProvider("bedrock") {
		t.Error("KnownProvider(\"bedrock\") = true, want false")
	}
}
