// Copyright 2026 Chainguard, Inc.
// SPDX-License-Identifier: Apache-2.0

package gcpkms

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"hash/crc32"

	kms "cloud.google.com/go/kms/apiv1"
	"cloud.google.com/go/kms/apiv1/kmspb"
	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/golang-jwt/jwt/v4"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

var (
	// ErrDigestCorrupted means KMS did not receive the digest we hashed.
	ErrDigestCorrupted = errors.New("kms: digest corrupted in transit")
	// ErrSignatureCorrupted means the signature we received does not match
	// the checksum KMS computed.
	ErrSignatureCorrupted = errors.New("kms: signature corrupted in transit")
)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

func checksum(b []byte) int64 {
	return int64(crc32.Checksum(b, castagnoli))
}

// signingMethodKMS signs JWTs with an RSA_SIGN_PKCS1_*_SHA256 key version.
type signingMethodKMS struct {
	ctx    context.Context
	client *kms.KeyManagementClient
}

func (s *signingMethodKMS) Verify(string, string, interface{}) error {
	return errors.New("not implemented")
}

func (s *signingMethodKMS) Sign(signingString string, ikey interface{}) (string, error) {
	key, ok := ikey.(string)
	if !ok {
		return "", fmt.Errorf("invalid key reference type: %T", ikey)
	}

	digest := sha256.Sum256([]byte(signingString))
	resp, err := s.client.AsymmetricSign(s.ctx, &kmspb.AsymmetricSignRequest{
		Name: key,
		Digest: &kmspb.Digest{
			Digest: &kmspb.Digest_Sha256{Sha256: digest[:]},
		},
		DigestCrc32C: wrapperspb.Int64(checksum(digest[:])),
	})
	if err != nil {
		return "", fmt.Errorf("signing with %s: %w", key, err)
	}
	if !resp.GetVerifiedDigestCrc32C() {
		return "", ErrDigestCorrupted
	}
	if resp.GetSignatureCrc32C().GetValue() != checksum(resp.GetSignature()) {
		return "", ErrSignatureCorrupted
	}
	return base64.RawURLEncoding.EncodeToString(resp.GetSignature()), nil
}

func (s *signingMethodKMS) Alg() string {
	return "RS256"
}

type signer struct {
	method *signingMethodKMS
	key    string
}

var _ ghinstallation.Signer = (*signer)(nil)

// New returns a Signer for GitHub App JWTs backed by the KMS key version
// named by key. Nothing is sent to KMS until the first Sign.
func New(ctx context.Context, client *kms.KeyManagementClient, key string) (ghinstallation.Signer, error) {
	if client == nil {
		return nil, errors.New("kms: nil client")
	}
	if key == "" {
		return nil, errors.New("kms: empty key name")
	}
	return &signer{
		method: &signingMethodKMS{
			ctx:    ctx,
			client: client,
		},
		key: key,
	}, nil
}

// Sign signs the JWT claims with the KMS key.
func (s *signer) Sign(claims jwt.Claims) (string, error) {
	return jwt.NewWithClaims(s.method, claims).SignedString(s.key)
}
