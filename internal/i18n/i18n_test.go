// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package i18n

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/pdiddy/board-report/pkg/types"
)

func TestDuration(t *testing.T) {
	tests := []struct {
		english bool
		d       time.Duration
		want    string
	}{
		{english: true, d: 61*time.Minute + 3*time.Second, want: "61 min 3 sec"},
		{english: false, d: 151*time.Minute + 43*time.Second, want: "151 мин 43 сек"},
		{english: true, d: 59 * time.Second, want: "0 min 59 sec"},
		{english: true, d: 0, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, New(tt.english).Duration(tt.d))
		})
	}
}

func TestT(t *testing.T) {
	assert.Equal(t, "Report", New(true).T("Report"))
	assert.Equal(t, "Отчет", New(false).T("Report"))
	assert.Equal(t, "untranslated", New(false).T("untranslated"))
}

func TestLang(t *testing.T) {
	assert.Equal(t, "en", New(true).Lang())
	assert.Equal(t, "ru", New(false).Lang())
}

func TestPinType(t *testing.T) {
	assert.Equal(t, "Test pin, high score", New(true).PinType(types.PinTestHighScore))
	assert.Equal(t, "Эталон, потеря", New(false).PinType(types.PinReferenceLoss))
	for pt := range pinTypeKeys {
		_, ok := russian[pinTypeKeys[pt]]
		assert.True(t, ok, "missing translation for %s", pt)
	}
}
