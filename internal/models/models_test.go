package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestID_StringOrNumber(t *testing.T) {
	var rec struct {
		A ID `json:"a"`
		B ID `json:"b"`
		C ID `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"01HZX","b":42,"c":null}`), &rec))
	assert.Equal(t, ID("01HZX"), rec.A)
	assert.Equal(t, "42", rec.B.String())
	assert.Empty(t, rec.C)

	var bad ID
	assert.Error(t, json.Unmarshal([]byte(`{"x":1}`), &bad))

	out, err := json.Marshal(rec.B)
	require.NoError(t, err)
	assert.JSONEq(t, `"42"`, string(out))
}

func TestAmount_NumberOrDecimalString(t *testing.T) {
	var w Wallet
	require.NoError(t, json.Unmarshal([]byte(`{"id":3,"user_id":9,"balance":"1250.50","currency":"USD"}`), &w))
	assert.Equal(t, Amount(1250.5), w.Balance)
	assert.Equal(t, "3", w.ID.String())
	assert.Equal(t, "9", w.UserID.String())

	var a Amount
	require.NoError(t, json.Unmarshal([]byte(`-25.5`), &a))
	assert.Equal(t, -25.5, a.Float64())

	require.NoError(t, json.Unmarshal([]byte(`null`), &a))
	assert.Zero(t, a)

	assert.Error(t, json.Unmarshal([]byte(`"lots"`), &a))
}

func TestTime_Layouts(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{`"2024-05-01T09:30:00Z"`, time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)},
		{`"2024-05-01T11:30:00+02:00"`, time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)},
		{`"2024-05-01T09:30:00.5"`, time.Date(2024, 5, 1, 9, 30, 0, 500000000, time.UTC)},
		{`"2024-05-01 09:30:00"`, time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)},
		{`"2024-05-01"`, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		var got Time
		require.NoError(t, json.Unmarshal([]byte(tt.in), &got), tt.in)
		assert.True(t, got.Equal(tt.want), "%s: got %s", tt.in, got)
	}

	var zero Time
	require.NoError(t, json.Unmarshal([]byte(`null`), &zero))
	assert.True(t, zero.IsZero())
	require.NoError(t, json.Unmarshal([]byte(`""`), &zero))
	assert.True(t, zero.IsZero())

	assert.Error(t, json.Unmarshal([]byte(`1714555800`), &zero))
	assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &zero))
}

func TestBlogPost_OptionalPublishedAt(t *testing.T) {
	var drafts []BlogPost
	require.NoError(t, json.Unmarshal([]byte(`[{"id":1,"slug":"a","published_at":null},`+
		`{"id":2,"slug":"b","published_at":"2024-01-02T03:04:05"}]`), &drafts))
	require.Len(t, drafts, 2)
	assert.Nil(t, drafts[0].PublishedAt)
	require.NotNil(t, drafts[1].PublishedAt)
	assert.Equal(t, 2024, drafts[1].PublishedAt.Year())
}

func TestUserRef_KeepsForm(t *testing.T) {
	var resp LoginResponse
	require.NoError(t, json.Unmarshal([]byte(`{"requires_2fa":true,"user_id":42}`), &resp))
	out, err := json.Marshal(resp.UserID)
	require.NoError(t, err)
	assert.Equal(t, `42`, string(out))

	require.NoError(t, json.Unmarshal([]byte(`{"user_id":"01HZX"}`), &resp))
	out, err = json.Marshal(resp.UserID)
	require.NoError(t, err)
	assert.Equal(t, `"01HZX"`, string(out))
}
