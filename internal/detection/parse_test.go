package detection

import (
	"reflect"
	"testing"

	"github.com/ironsheep/answer-eraser/internal/geometry"
)

func TestParseBoxes(t *testing.T) {
	tests := []struct {
		name    string
		answer  string
		want    []geometry.NormalizedRegion
		wantErr bool
	}{
		{
			name:   "bare array",
			answer: `[{"x": 0.1, "y": 0.2, "width": 0.3, "height": 0.05}]`,
			want:   []geometry.NormalizedRegion{{X: 0.1, Y: 0.2, Width: 0.3, Height: 0.05}},
		},
		{
			name:   "json fence",
			answer: "```json\n[{\"x\":0,\"y\":0,\"width\":0.5,\"height\":0.5}]\n```",
			want:   []geometry.NormalizedRegion{{Width: 0.5, Height: 0.5}},
		},
		{
			name:   "plain fence",
			answer: "```\n[]\n```",
			want:   []geometry.NormalizedRegion{},
		},
		{
			name:   "surrounding prose",
			answer: "Sure! Here are the boxes:\n[{\"x\":0.5,\"y\":0.5,\"width\":0.1,\"height\":0.1}]\nHope that helps.",
			want:   []geometry.NormalizedRegion{{X: 0.5, Y: 0.5, Width: 0.1, Height: 0.1}},
		},
		{name: "no array", answer: "I could not find any handwriting.", wantErr: true},
		{name: "broken json", answer: `[{"x": 0.1,]`, wantErr: true},
		{name: "wrong shape", answer: `[1, 2, 3]`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseBoxes(tt.answer)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseBoxes failed: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseIndices(t *testing.T) {
	tests := []struct {
		name    string
		answer  string
		want    []int
		wantErr bool
	}{
		{name: "array", answer: "[0, 3, 4]", want: []int{0, 3, 4}},
		{name: "empty", answer: "[]", want: []int{}},
		{name: "fenced", answer: "```json\n[2]\n```", want: []int{2}},
		{name: "prose", answer: "The handwritten blocks are [1, 2].", want: []int{1, 2}},
		{name: "whole floats", answer: "[1.0, 2]", want: []int{1, 2}},
		{name: "negative kept for range check", answer: "[-1]", want: []int{-1}},
		{name: "fraction", answer: "[1.5]", wantErr: true},
		{name: "strings", answer: `["1"]`, wantErr: true},
		{name: "no array", answer: "none of them", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseIndices(tt.answer)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseIndices failed: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}
