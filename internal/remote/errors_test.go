package remote_test

import (
	"fmt"
	"testing"

	"github.com/attendd/attendd/internal/remote"
)

func TestUnreachableClassification(t *testing.T) {
	if !remote.Unreachable(remote.ErrNetwork) || !remote.Unreachable(remote.ErrTimeout) {
		t.Fatal("transport sentinels not classified as unreachable")
	}
	if !remote.Unreachable(fmt.Errorf("probe: %w", remote.ErrNetwork)) {
		t.Fatal("wrapped transport error not classified as unreachable")
	}
	if remote.Unreachable(&remote.RemoteError{StatusCode: 503, Body: "down"}) {
		t.Fatal("a delivered 503 is a verdict, not a transport failure")
	}
}

func TestPolicyRejectClassification(t *testing.T) {
	cases := []struct {
		status int
		body   string
		want   bool
	}{
		{400, "Attendance not allowed on Monday", true},
		{400, "Group schedule mismatch", true},
		{400, "malformed payload", false},
		{403, "Attendance not allowed on Monday", false},
		{500, "Group schedule lookup crashed", false},
	}
	for _, tc := range cases {
		err := &remote.RemoteError{StatusCode: tc.status, Body: tc.body}
		if got := remote.PolicyReject(err); got != tc.want {
			t.Errorf("PolicyReject(%d %q) = %v, want %v", tc.status, tc.body, got, tc.want)
		}
	}
	if remote.PolicyReject(remote.ErrNetwork) {
		t.Fatal("transport failure classified as policy rejection")
	}
}

func TestBlacklistedClassification(t *testing.T) {
	cases := []struct {
		status int
		body   string
		want   bool
	}{
		{403, "Student is on the blacklist", true},
		{400, "blacklisted student", true},
		{403, "account suspended", false},
		// A 5xx mentioning the word is a server fault, not a verdict;
		// treating it as one would wipe templates off the scanners.
		{500, "blacklist table unavailable", false},
		{502, "blacklist service timed out", false},
	}
	for _, tc := range cases {
		err := &remote.RemoteError{StatusCode: tc.status, Body: tc.body}
		if got := remote.Blacklisted(err); got != tc.want {
			t.Errorf("Blacklisted(%d %q) = %v, want %v", tc.status, tc.body, got, tc.want)
		}
	}
	if remote.Blacklisted(remote.ErrTimeout) {
		t.Fatal("transport failure classified as blacklist verdict")
	}
}
