package service

import (
	"context"
)

// EvidenceChecker проверяет наличие загруженного блоба по ссылке.
type EvidenceChecker interface {
	Exists(ctx context.Context, ref string) (bool, error)
}

// EvidenceProofVerifier принимает доказательство владения, если продавец
// заранее загрузил его в хранилище улик. Ссылка содержательно адресуема:
// подделать её, не владея файлом, нельзя.
type EvidenceProofVerifier struct {
	store EvidenceChecker
}

func NewEvidenceProofVerifier(store EvidenceChecker) *EvidenceProofVerifier {
	return &EvidenceProofVerifier{store: store}
}

func (v *EvidenceProofVerifier) Verify(ctx context.Context, username, evidenceRef string) (bool, error) {
	if evidenceRef == "" {
		return false, nil
	}
	return v.store.Exists(ctx, evidenceRef)
}
