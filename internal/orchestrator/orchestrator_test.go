// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/protocol7/uits-go/internal/cryptosurface"
	"github.com/protocol7/uits-go/internal/token"
)

func writeMinimalWAV(t *testing.T, path string) {
	t.Helper()
	var riff []byte
	riff = append(riff, "RIFF"...)
	riff = append(riff, 0, 0, 0, 0)
	riff = append(riff, "WAVE"...)
	riff = append(riff, "fmt "...)
	fmtBody := make([]byte, 16)
	riff = append(riff, 16, 0, 0, 0)
	riff = append(riff, fmtBody...)
	dataBody := []byte("sample-audio-bytes")
	riff = append(riff, "data"...)
	size := len(dataBody)
	riff = append(riff, byte(size), byte(size>>8), byte(size>>16), byte(size>>24))
	riff = append(riff, dataBody...)
	riffSize := len(riff) - 8
	riff[4] = byte(riffSize)
	riff[5] = byte(riffSize >> 8)
	riff[6] = byte(riffSize >> 16)
	riff[7] = byte(riffSize >> 24)
	require.NoError(t, os.WriteFile(path, riff, 0o644))
}

func genKeyPair(t *testing.T, dir string) (privPath, pubPath string) {
	t.Helper()
	privPath = filepath.Join(dir, "k.priv")
	pubPath = filepath.Join(dir, "k.pub")
	require.NoError(t, GenerateKeyPair(KeyGenOptions{
		Algorithm:      cryptosurface.RSA2048,
		PrivateKeyPath: privPath,
		PublicKeyPath:  pubPath,
	}))
	return privPath, pubPath
}

func TestCreateEmbedsIntoWAVAndVerifySucceeds(t *testing.T) {
	dir := t.TempDir()
	inPath := filepath.Join(dir, "in.wav")
	outPath := filepath.Join(dir, "out.wav")
	writeMinimalWAV(t, inPath)

	privPath, pubPath := genKeyPair(t, dir)
	priv, err := cryptosurface.LoadPrivateKey(privPath, cryptosurface.RSA2048)
	require.NoError(t, err)
	pub, err := cryptosurface.LoadPublicKey(pubPath, cryptosurface.RSA2048)
	require.NoError(t, err)

	result, err := Create(CreateOptions{
		InputPath:  inPath,
		OutputPath: outPath,
		Profile:    token.PerTrack,
		Fields: []FieldAssignment{
			{Element: "nonce", Value: "N1"},
			{Element: "Distributor", Value: "D"},
			{Element: "ProductID", Value: "0600753XXXXX7"},
			{Element: "AssetID", Value: "USUM71300001"},
			{Element: "TID", Value: "T1"},
		},
		PrivateKey: priv,
		Algorithm:  cryptosurface.RSA2048,
		KeyID:      "KID",
	})
	require.NoError(t, err)
	assert.False(t, result.Standalone)
	assert.NotEmpty(t, result.MediaHash)

	vr, err := Verify(VerifyOptions{
		AudioPath: outPath,
		PublicKey: pub,
		Profile:   token.PerTrack,
		CheckHash: true,
	})
	require.NoError(t, err)
	assert.Empty(t, vr.HashWarning)
}

func TestVerifyAcceptsStandaloneTokenWithExplicitHash(t *testing.T) {
	dir := t.TempDir()
	inPath := filepath.Join(dir, "in.wav")
	tokenPath := filepath.Join(dir, "token.xml")
	writeMinimalWAV(t, inPath)

	privPath, pubPath := genKeyPair(t, dir)
	priv, err := cryptosurface.LoadPrivateKey(privPath, cryptosurface.RSA2048)
	require.NoError(t, err)
	pub, err := cryptosurface.LoadPublicKey(pubPath, cryptosurface.RSA2048)
	require.NoError(t, err)

	// Compute the media hash from the audio separately, the way a
	// caller verifying a standalone token against its original audio
	// (rather than an embedded copy) would.
	digest, err := Hash(inPath, false, nil)
	require.NoError(t, err)

	result, err := Create(CreateOptions{
		OutputPath: tokenPath,
		Profile:    token.PerTrack,
		Fields: []FieldAssignment{
			{Element: "nonce", Value: "N1"},
			{Element: "Distributor", Value: "D"},
			{Element: "ProductID", Value: "0600753XXXXX7"},
			{Element: "AssetID", Value: "USUM71300001"},
			{Element: "TID", Value: "T1"},
			{Element: "Media", Value: digest},
		},
		PrivateKey: priv,
		Algorithm:  cryptosurface.RSA2048,
		KeyID:      "KID",
	})
	require.NoError(t, err)
	require.True(t, result.Standalone)

	vr, err := Verify(VerifyOptions{
		TokenPath:     tokenPath,
		ReferenceHash: digest,
		PublicKey:     pub,
		Profile:       token.PerTrack,
		CheckHash:     true,
	})
	require.NoError(t, err)
	assert.Empty(t, vr.HashWarning)
}

func TestCreateWithoutInputWritesStandaloneToken(t *testing.T) {
	dir := t.TempDir()
	outPath := filepath.Join(dir, "token.xml")
	privPath, _ := genKeyPair(t, dir)
	priv, err := cryptosurface.LoadPrivateKey(privPath, cryptosurface.RSA2048)
	require.NoError(t, err)

	result, err := Create(CreateOptions{
		OutputPath: outPath,
		Profile:    token.Package,
		Fields: []FieldAssignment{
			{Element: "nonce", Value: "N1"},
			{Element: "Distributor", Value: "D"},
			{Element: "ProductID", Value: "0600753XXXXX7"},
			{Element: "TID", Value: "T1"},
		},
		PrivateKey: priv,
		Algorithm:  cryptosurface.RSA2048,
		KeyID:      "KID",
	})
	require.NoError(t, err)
	assert.True(t, result.Standalone)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<uits:UITS")
}

func TestExtractReturnsNilForUnembeddedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "in.wav")
	writeMinimalWAV(t, path)

	payload, err := Extract(path, nil)
	require.NoError(t, err)
	assert.Nil(t, payload)
}

func TestHashReturnsLowercaseHex(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "in.wav")
	writeMinimalWAV(t, path)

	digest, err := Hash(path, false, nil)
	require.NoError(t, err)
	assert.Len(t, digest, 64)
}

func TestHashReturnsBase64WhenRequested(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "in.wav")
	writeMinimalWAV(t, path)

	digest, err := Hash(path, true, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, digest)
	assert.NotRegexp(t, "^[0-9a-f]{64}$", digest)
}

func TestGenKeyReturnsSHA1FingerprintOfPublicKey(t *testing.T) {
	dir := t.TempDir()
	_, pubPath := genKeyPair(t, dir)

	keyID, err := GenKey(pubPath)
	require.NoError(t, err)
	assert.Len(t, keyID, 40)
}

func TestGenerateKeyPairWritesBothFiles(t *testing.T) {
	dir := t.TempDir()
	privPath, pubPath := genKeyPair(t, dir)
	_, err := os.Stat(privPath)
	require.NoError(t, err)
	_, err = os.Stat(pubPath)
	require.NoError(t, err)
}
