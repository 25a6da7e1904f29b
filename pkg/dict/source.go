package dict

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
)

// Source is where a lexicon is read from.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	String() string
}

// ---- file ----

// FileSource reads the lexicon from a path on disk.
type FileSource string

// Open implements [Source].
func (s FileSource) Open(context.Context) (io.ReadCloser, error) {
	return os.Open(string(s))
}

func (s FileSource) String() string { return "file:" + string(s) }

// ---- fs.FS ----

// FSSource reads the lexicon from a file inside an [fs.FS], such as the
// embedded sample lexicon.
type FSSource struct {
	FS   fs.FS
	Name string
}

// Open implements [Source].
func (s FSSource) Open(context.Context) (io.ReadCloser, error) {
	return s.FS.Open(s.Name)
}

func (s FSSource) String() string { return "fs:" + s.Name }

// ---- HTTP ----

// HTTPSource fetches the lexicon with a GET request.
type HTTPSource struct {
	URL    string
	Client *http.Client // nil means http.DefaultClient
}

// Open implements [Source].
func (s HTTPSource) Open(ctx context.Context) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, err
	}
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

func (s HTTPSource) String() string { return s.URL }
