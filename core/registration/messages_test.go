package registration

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessages_Render(t *testing.T) {
	m := DefaultMessages()

	assert.Equal(t, "[reg 2/14]>", m.Render(CatPrompt, string(StageQuestioning), Params{"current": "2", "total": "14"}))
	assert.Equal(t, "3. Program: Logic", m.Render(CatReview, "line", Params{"n": "3", "label": "Program", "answer": "Logic"}))
	assert.Equal(t, "Please rank exactly 3 options.", m.Render(CatValidation, KeyRankingStrictCountError, Params{"min": "3"}))

	// unknown keys fall back to the generic error
	assert.Equal(t, m.Render(CatErrors, "generic", nil), m.Render(CatReview, "nope", nil))

	_, ok := m.Template(CatHelp, string(StageSubmissionError))
	assert.True(t, ok)
}

func TestMessages_EveryStageHasHelpAndInvalid(t *testing.T) {
	m := DefaultMessages()
	keys := []string{"edit"}
	for _, s := range Stages {
		keys = append(keys, string(s))
	}
	for _, key := range keys {
		for _, cat := range []string{CatHelp, CatInvalid, CatPrompt} {
			_, ok := m.Template(cat, key)
			assert.True(t, ok, "%s.%s", cat, key)
		}
	}
}

func TestMessages_ValidationKeysExist(t *testing.T) {
	m := DefaultMessages()
	for _, key := range []string{
		KeyRequired, KeyTooLong, KeyInvalidEmail, KeyInvalidNumber, KeyOutOfRange, KeyGenericDetailed,
		KeyInvalidOption, KeyInvalidMultiSelectFormat, KeyInvalidOptionNumber, KeyRankingFormatError,
		KeyRankingUniqueOptionError, KeyRankingUniqueRankError, KeyRankingStrictCountError,
		KeyRankingMinError, KeyRankingInvalidOptionNumber, KeyRankingInvalidRankNumber,
		KeyReprompt, KeyPasswordPolicy,
	} {
		_, ok := m.Template(CatValidation, key)
		assert.True(t, ok, key)
	}
}
