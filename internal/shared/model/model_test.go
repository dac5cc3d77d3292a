package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func TestUser_JSONHidesSecrets(t *testing.T) {
	u := User{
		ID:           bson.NewObjectID(),
		UserName:     "alice",
		Email:        "alice@example.com",
		PasswordHash: "$2a$10$secret",
		TokenVersion: 3,
	}
	data, err := json.Marshal(u)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	assert.NotContains(t, m, "passwordHash")
	assert.NotContains(t, m, "PasswordHash")
	assert.NotContains(t, m, "tokenVersion")
	assert.NotContains(t, string(data), "secret")
	assert.Equal(t, "alice", m["userName"])
	assert.Equal(t, false, m["isAdmin"])
}

func TestUserUpdate_Empty(t *testing.T) {
	name := "bob"
	assert.True(t, UserUpdate{}.Empty())
	assert.False(t, UserUpdate{UserName: &name}.Empty())

	// 仅有版本条件不算更新
	v := int64(1)
	assert.True(t, UserUpdate{ExpectedVersion: &v}.Empty())
}

func TestBookFilter_Matches(t *testing.T) {
	lo, hi := int64(10), int64(20)
	tests := []struct {
		name   string
		filter BookFilter
		price  int64
		want   bool
	}{
		{"no bounds", BookFilter{}, 5, true},
		{"below min", BookFilter{MinPrice: &lo}, 9, false},
		{"at min", BookFilter{MinPrice: &lo}, 10, true},
		{"above max", BookFilter{MaxPrice: &hi}, 21, false},
		{"in range", BookFilter{MinPrice: &lo, MaxPrice: &hi}, 15, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Matches(tt.price))
		})
	}
}

func TestAuthor_FullName(t *testing.T) {
	a := &Author{FirstName: "Naguib", LastName: "Mahfouz"}
	assert.Equal(t, "Naguib Mahfouz", a.FullName())
}
