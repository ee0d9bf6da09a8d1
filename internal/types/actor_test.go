package types

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithActor(t *testing.T) {
	ctx := WithActor(context.Background(), Actor{UserID: "user_1", AccountID: "acc_1", IsAdmin: true})

	actor, ok := GetActor(ctx)
	assert.True(t, ok)
	assert.Equal(t, "user_1", actor.UserID)
	assert.Equal(t, "user_1", GetUserID(ctx))
	assert.Equal(t, "acc_1", GetAccountID(ctx))

	_, ok = GetActor(context.Background())
	assert.False(t, ok)
}

func TestHasAuthorityOver(t *testing.T) {
	tests := []struct {
		name  string
		actor Actor
		want  bool
	}{
		{"system", SystemActor(), true},
		{"admin of the account", Actor{UserID: "u", AccountID: "acc_1", IsAdmin: true}, true},
		{"admin of another account", Actor{UserID: "u", AccountID: "acc_2", IsAdmin: true}, false},
		{"member", Actor{UserID: "u", AccountID: "acc_1"}, false},
		{"admin without account", Actor{UserID: "u", IsAdmin: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.actor.HasAuthorityOver("acc_1"))
		})
	}
}
