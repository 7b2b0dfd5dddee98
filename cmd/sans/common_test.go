package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTableBindings(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    []tableBinding
		wantErr bool
	}{
		{name: "empty", raw: "", want: nil},
		{name: "whitespace only", raw: "   ", want: nil},
		{
			name: "single",
			raw:  "in=data/in.csv",
			want: []tableBinding{{Name: "in", Path: "data/in.csv"}},
		},
		{
			name: "multiple",
			raw:  "a=a.csv,b=b.xpt",
			want: []tableBinding{{Name: "a", Path: "a.csv"}, {Name: "b", Path: "b.xpt"}},
		},
		{
			name: "trims surrounding whitespace",
			raw:  " a = a.csv , b = b.xpt ",
			want: []tableBinding{{Name: "a", Path: "a.csv"}, {Name: "b", Path: "b.xpt"}},
		},
		{name: "missing equals", raw: "a.csv", wantErr: true},
		{name: "empty name", raw: "=a.csv", wantErr: true},
		{name: "empty path", raw: "a=", wantErr: true},
		{name: "duplicate name", raw: "a=a.csv,a=b.csv", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseTableBindings(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatForPath(t *testing.T) {
	tests := []struct {
		name     string
		explicit string
		path     string
		want     string
	}{
		{name: "explicit wins", explicit: "xpt", path: "out.csv", want: "xpt"},
		{name: "xpt extension", explicit: "", path: "out.xpt", want: "xpt"},
		{name: "XPT extension case-insensitive", explicit: "", path: "out.XPT", want: "xpt"},
		{name: "csv extension", explicit: "", path: "out.csv", want: "csv"},
		{name: "unknown extension defaults to csv", explicit: "", path: "out.dat", want: "csv"},
		{name: "no extension defaults to csv", explicit: "", path: "out", want: "csv"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatForPath(tt.explicit, tt.path))
		})
	}
}
