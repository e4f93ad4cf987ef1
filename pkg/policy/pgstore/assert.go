package pgstore

import "github.com/codeready-toolchain/tarsy/pkg/policy/store"

var (
	_ store.PolicyStore        = (*Policies)(nil)
	_ store.EvaluationStore    = (*Evaluations)(nil)
	_ store.VariantStore       = (*Variants)(nil)
	_ store.JobStore           = (*Jobs)(nil)
	_ store.SessionStatusStore = (*SessionStatuses)(nil)
)
