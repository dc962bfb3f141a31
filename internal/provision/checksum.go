package provision

import (
	"crypto/md5"
	"encoding/hex"
	"hash"
	"io"
)

// checksumReader hashes everything read through it, so a delivered log
// file can be checked against its ETag while being decoded.
type checksumReader struct {
	r io.Reader
	h hash.Hash
}

func newChecksumReader(r io.Reader) *checksumReader {
	return &checksumReader{r: r, h: md5.New()}
}

func (cr *checksumReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	cr.h.Write(p[:n])
	return n, err
}

func (cr *checksumReader) Sum() string {
	return hex.EncodeToString(cr.h.Sum(nil))
}

// isMD5ETag reports whether an ETag is a plain MD5 of the object body.
// Multipart uploads carry a part-count suffix and cannot be checked
// this way.
func isMD5ETag(etag string) bool {
	if len(etag) != 32 {
		return false
	}
	_, err := hex.DecodeString(etag)
	return err == nil
}
