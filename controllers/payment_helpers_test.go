package controllers

import (
	"strings"
	"testing"
	"unicode/utf8"

	"payment-service/models"

	"github.com/stretchr/testify/assert"
)

func TestItemSummary_JoinsNames(t *testing.T) {
	items := []models.PaymentItem{
		{Name: "Chicken Kottu", Price: 1200, Quantity: 1},
		{Name: "Faluda", Price: 450, Quantity: 2},
	}
	assert.Equal(t, "Chicken Kottu, Faluda", itemSummary(items))
}

func TestItemSummary_TruncatesLongSummaries(t *testing.T) {
	items := []models.PaymentItem{
		{Name: strings.Repeat("x", 400), Price: 100, Quantity: 1},
	}
	assert.Len(t, itemSummary(items), maxItemSummaryLen)
}

func TestItemSummary_TruncatesOnRuneBoundary(t *testing.T) {
	// Sinhala item names are three bytes per character; offset the string
	// by one byte so the raw byte limit falls inside a character.
	name := "x" + strings.Repeat("ල", 120)
	items := []models.PaymentItem{{Name: name, Price: 100, Quantity: 1}}

	summary := itemSummary(items)
	assert.True(t, utf8.ValidString(summary))
	assert.LessOrEqual(t, len(summary), maxItemSummaryLen)
	assert.Equal(t, 253, len(summary))
}
