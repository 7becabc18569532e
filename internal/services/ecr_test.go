package services

import (
	"encoding/base64"
	"testing"
)

func TestIsECRHost(t *testing.T) {
	tests := []struct {
		name string
		host string
		want bool
	}{
		{name: "ecr host", host: "123456789012.dkr.ecr.eu-west-2.amazonaws.com", want: true},
		{name: "ecr host us-east-1", host: "000000000000.dkr.ecr.us-east-1.amazonaws.com", want: true},
		{name: "docker hub", host: "docker.io", want: false},
		{name: "empty", host: "", want: false},
		{name: "generic registry", host: "registry.example.com", want: false},
		{name: "ecr public", host: "public.ecr.aws", want: false},
		{name: "lookalike", host: "dkr.ecr.amazonaws.com.example.com", want: false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if got := IsECRHost(tc.host); got != tc.want {
				t.Fatalf("IsECRHost(%q) = %v, want %v", tc.host, got, tc.want)
			}
		})
	}
}

func TestDecodeAuthorizationToken(t *testing.T) {
	token := base64.StdEncoding.EncodeToString([]byte("AWS:super-secret-token"))

	user, pass, err := decodeAuthorizationToken(token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user != "AWS" {
		t.Errorf("expected user AWS, got %s", user)
	}
	if pass != "super-secret-token" {
		t.Errorf("expected decoded password, got %s", pass)
	}
}

func TestDecodeAuthorizationToken_PasswordWithColon(t *testing.T) {
	token := base64.StdEncoding.EncodeToString([]byte("AWS:part1:part2"))

	_, pass, err := decodeAuthorizationToken(token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pass != "part1:part2" {
		t.Errorf("password must keep embedded colons, got %s", pass)
	}
}

func TestDecodeAuthorizationToken_Invalid(t *testing.T) {
	if _, _, err := decodeAuthorizationToken("not-base64!!"); err == nil {
		t.Error("expected error for invalid base64")
	}
	if _, _, err := decodeAuthorizationToken(base64.StdEncoding.EncodeToString([]byte("no-separator"))); err == nil {
		t.Error("expected error for token without separator")
	}
}
