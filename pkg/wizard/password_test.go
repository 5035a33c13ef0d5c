package wizard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScorePasswordStrength(t *testing.T) {
	tests := []struct {
		password string
		score    StrengthScore
		class    Strength
	}{
		{"", 0, StrengthEmpty},
		{"abc", 0, StrengthWeak},
		{"abcdefgh", 1, StrengthWeak},
		{"Abc", 1, StrengthWeak},
		{"Abc1", 2, StrengthMedium},
		{"Abcdef12", 3, StrengthMedium},
		{"abc def!", 2, StrengthMedium},
		{"Abcdef1!", 4, StrengthStrong},
		{"ÁBCDEFGH", 3, StrengthMedium},
	}

	for _, tt := range tests {
		t.Run(tt.password, func(t *testing.T) {
			assert.Equal(t, tt.score, ScorePasswordStrength(tt.password))
			assert.Equal(t, tt.class, ClassifyPassword(tt.password))
		})
	}
}

func TestStrengthScore_Class(t *testing.T) {
	assert.Equal(t, StrengthWeak, StrengthScore(0).Class())
	assert.Equal(t, StrengthWeak, StrengthScore(1).Class())
	assert.Equal(t, StrengthMedium, StrengthScore(2).Class())
	assert.Equal(t, StrengthMedium, StrengthScore(3).Class())
	assert.Equal(t, StrengthStrong, StrengthScore(4).Class())
}
