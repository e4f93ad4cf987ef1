package session

import "github.com/codeready-toolchain/tarsy/pkg/policy/store"

var _ store.SessionStore = (*Store)(nil)
