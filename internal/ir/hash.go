package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainSet      = "relup/set/v1"
	DomainPipeline = "relup/pipeline/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00}) // Null separator prevents domain/data ambiguity
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint computes the content-addressed ID of an instruction set.
// Structurally equal sets have equal fingerprints.
func Fingerprint(s Set) (string, error) {
	canonical, err := MarshalCanonical(s)
	if err != nil {
		return "", fmt.Errorf("Fingerprint: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainSet, canonical), nil
}

// PipelineHash computes the content-addressed ID of a pipeline definition.
func PipelineHash(p PipelineSpec) (string, error) {
	steps := make([]any, len(p.Steps))
	for i, st := range p.Steps {
		opts := make(map[string]any, len(st.Options))
		for k, v := range st.Options {
			opts[k] = v
		}
		steps[i] = map[string]any{
			"use":     st.Use,
			"options": opts,
			"up":      sequenceNodes(st.Up),
			"down":    sequenceNodes(st.Down),
		}
	}
	obj := map[string]any{
		"name":         p.Name,
		"release":      p.Release,
		"from_version": p.FromVersion,
		"to_version":   p.ToVersion,
		"steps":        steps,
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("PipelineHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainPipeline, canonical), nil
}
