package storage

import (
	"context"
	"errors"
	"io"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPutter struct {
	input *s3.PutObjectInput
	body  string
	err   error
}

func (p *stubPutter) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	p.input = params
	if params.Body != nil {
		b, _ := io.ReadAll(params.Body)
		p.body = string(b)
	}
	return &s3.PutObjectOutput{}, p.err
}

func TestSaveDepositProof(t *testing.T) {
	putter := &stubPutter{}
	store := newS3ProofStore(putter, "proofs")
	store.now = func() time.Time { return time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC) }

	key, err := store.SaveDepositProof(context.Background(), 42, "Receipt.PNG", strings.NewReader("png-bytes"))
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^deposit-proofs/42/2025/03/[0-9a-f-]{36}\.png$`), key)
	assert.Equal(t, "proofs", aws.ToString(putter.input.Bucket))
	assert.Equal(t, key, aws.ToString(putter.input.Key))
	assert.Equal(t, "image/png", aws.ToString(putter.input.ContentType))
	assert.Equal(t, "png-bytes", putter.body)
}

func TestSaveDepositProof_UnknownExtension(t *testing.T) {
	putter := &stubPutter{}
	store := newS3ProofStore(putter, "proofs")

	_, err := store.SaveDepositProof(context.Background(), 1, "proof", strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, "application/octet-stream", aws.ToString(putter.input.ContentType))
}

func TestSaveDepositProof_Error(t *testing.T) {
	store := newS3ProofStore(&stubPutter{err: errors.New("denied")}, "proofs")

	_, err := store.SaveDepositProof(context.Background(), 1, "proof.pdf", strings.NewReader("x"))
	require.Error(t, err)
}

func TestNewS3ProofStore_RequiresBucket(t *testing.T) {
	_, err := NewS3ProofStore(context.Background(), Options{Region: "auto"})
	require.Error(t, err)
}
