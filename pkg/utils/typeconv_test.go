package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestToTime(t *testing.T) {
	fallback := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	stored := time.Date(2020, 6, 1, 10, 0, 0, 0, time.UTC)

	assert.True(t, ToTime(primitive.NewDateTimeFromTime(stored), fallback).Equal(stored))
	assert.True(t, ToTime("2020-06-01T10:00:00Z", fallback).Equal(stored))
	assert.True(t, ToTime(nil, fallback).Equal(fallback))
	assert.True(t, ToTime("not a date", fallback).Equal(fallback))
}

func TestToStringHandlesObjectID(t *testing.T) {
	id := primitive.NewObjectID()
	assert.Equal(t, id.Hex(), ToString(id))
	assert.Equal(t, "", ToString(nil))
	assert.Equal(t, "fallback", ToStringOr(nil, "fallback"))
}

func TestToNullableString(t *testing.T) {
	assert.Nil(t, ToNullableString(nil))
	assert.Nil(t, ToNullableString(""))
	assert.Equal(t, "x", ToNullableString("x"))
}

func TestToStringSlice(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, ToStringSlice(primitive.A{"a", "b"}))
	assert.Equal(t, []string{"a"}, ToStringSlice(primitive.A{"a", 1}))
	assert.Nil(t, ToStringSlice("not an array"))
}

func TestToJSONNormalizesBsonTypes(t *testing.T) {
	stamp := time.Date(2020, 6, 1, 10, 0, 0, 0, time.UTC)
	out, err := ToJSON(bson.M{
		"when": primitive.NewDateTimeFromTime(stamp),
		"tags": primitive.A{"x"},
	}, "{}")
	require.NoError(t, err)
	assert.JSONEq(t, `{"when":"2020-06-01T10:00:00.000000Z","tags":["x"]}`, out)
}

func TestToJSONFallback(t *testing.T) {
	out, err := ToJSON(nil, "[]")
	require.NoError(t, err)
	assert.Equal(t, "[]", out)
}
