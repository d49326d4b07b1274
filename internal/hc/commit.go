package hc

import (
	"bytes"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the layout of dates handed to git through GIT_AUTHOR_DATE and
// GIT_COMMITTER_DATE: "<weekday> <month> <day> <HH:MM:SS> <year> <±HHMM>".
const DateLayout = "Mon Jan 02 15:04:05 2006 -0700"

// FormatDate renders t in its own zone using DateLayout.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// NormalizeEncoding returns enc as it appears in an encoding header. git
// writes no header for UTF-8, so every spelling of it maps to "".
func NormalizeEncoding(enc string) string {
	if strings.EqualFold(enc, "utf-8") || strings.EqualFold(enc, "utf8") {
		return ""
	}
	return enc
}

// ObjectFormat is the hash algorithm a repository names its objects with.
type ObjectFormat string

const (
	SHA1   ObjectFormat = "sha1"
	SHA256 ObjectFormat = "sha256"
)

// ParseObjectFormat parses the output of `git rev-parse --show-object-format`.
func ParseObjectFormat(s string) (ObjectFormat, error) {
	switch f := ObjectFormat(strings.TrimSpace(s)); f {
	case SHA1, SHA256:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported object format: %q", s)
	}
}

// HexLen returns the length of an object id rendered as hex.
func (f ObjectFormat) HexLen() int {
	if f == SHA256 {
		return 64
	}
	return 40
}

func (f ObjectFormat) newHash() hash.Hash {
	if f == SHA256 {
		return sha256.New()
	}
	return sha1.New()
}

// Identity is a name and email pair as recorded in commit headers.
type Identity struct {
	Name  string
	Email string
}

func (i Identity) String() string {
	return i.Name + " <" + i.Email + ">"
}

// Signature is an identity stamped with a date. The zone of When is the
// offset that ends up in the commit header.
type Signature struct {
	Identity
	When time.Time
}

// Date returns When in the form git accepts for GIT_*_DATE.
func (s Signature) Date() string {
	return FormatDate(s.When)
}

func (s Signature) appendTo(b []byte) []byte {
	b = append(b, s.Name...)
	b = append(b, " <"...)
	b = append(b, s.Email...)
	b = append(b, "> "...)
	b = strconv.AppendInt(b, s.When.Unix(), 10)
	b = append(b, ' ')
	return appendOffset(b, s.When)
}

func appendOffset(b []byte, t time.Time) []byte {
	_, offset := t.Zone()
	sign := byte('+')
	if offset < 0 {
		sign = '-'
		offset = -offset
	}
	minutes := offset / 60
	hh, mm := minutes/60, minutes%60
	return append(b, sign, byte('0'+hh/10), byte('0'+hh%10), byte('0'+mm/10), byte('0'+mm%10))
}

// ParseSignature parses a header value of the form
// "Name <email> 1700000000 +0100".
func ParseSignature(s string) (Signature, error) {
	lt := strings.IndexByte(s, '<')
	gt := strings.LastIndexByte(s, '>')
	if lt < 0 || gt < lt {
		return Signature{}, fmt.Errorf("malformed identity: %q", s)
	}

	name := s[:lt]
	name = strings.TrimSuffix(name, " ")

	fields := strings.Fields(s[gt+1:])
	if len(fields) != 2 {
		return Signature{}, fmt.Errorf("malformed identity date: %q", s)
	}
	secs, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return Signature{}, fmt.Errorf("malformed identity timestamp %q: %w", fields[0], err)
	}
	offset, err := parseOffset(fields[1])
	if err != nil {
		return Signature{}, err
	}

	return Signature{
		Identity: Identity{Name: name, Email: s[lt+1 : gt]},
		When:     time.Unix(secs, 0).In(time.FixedZone("", offset)),
	}, nil
}

func parseOffset(tz string) (int, error) {
	if len(tz) != 5 || (tz[0] != '+' && tz[0] != '-') {
		return 0, fmt.Errorf("malformed timezone offset: %q", tz)
	}
	hhmm, err := strconv.Atoi(tz[1:])
	if err != nil {
		return 0, fmt.Errorf("malformed timezone offset %q: %w", tz, err)
	}
	offset := (hhmm/100)*3600 + (hhmm%100)*60
	if tz[0] == '-' {
		offset = -offset
	}
	return offset, nil
}

// CommitDescriptor is the logical content of a commit that has not been
// written yet. Its predicted id, HashCommit(format, d), is the id git assigns
// to an unsigned commit written with the same fields.
type CommitDescriptor struct {
	Tree      string
	Parent    string // empty for a root commit
	Author    Signature
	Committer Signature
	Encoding  string // empty for UTF-8, see NormalizeEncoding
	Message   string // exact bytes, normally ending in "\n"
}

// Encode returns the canonical commit object body, without the
// "commit <size>\x00" header.
func (d *CommitDescriptor) Encode() []byte {
	return d.appendBody(nil)
}

func (d *CommitDescriptor) appendBody(b []byte) []byte {
	b = append(b, "tree "...)
	b = append(b, d.Tree...)
	b = append(b, '\n')
	if d.Parent != "" {
		b = append(b, "parent "...)
		b = append(b, d.Parent...)
		b = append(b, '\n')
	}
	b = append(b, "author "...)
	b = d.Author.appendTo(b)
	b = append(b, '\n')
	b = append(b, "committer "...)
	b = d.Committer.appendTo(b)
	b = append(b, '\n')
	if d.Encoding != "" {
		b = append(b, "encoding "...)
		b = append(b, d.Encoding...)
		b = append(b, '\n')
	}
	b = append(b, '\n')
	return append(b, d.Message...)
}

// commitHasher hashes descriptors while reusing its buffers. It is the hot
// path of the search loop.
type commitHasher struct {
	h      hash.Hash
	header []byte
	body   []byte
	sum    []byte
}

func newCommitHasher(format ObjectFormat) *commitHasher {
	return &commitHasher{h: format.newHash()}
}

func (c *commitHasher) hash(d *CommitDescriptor) string {
	c.body = d.appendBody(c.body[:0])

	c.header = append(c.header[:0], "commit "...)
	c.header = strconv.AppendInt(c.header, int64(len(c.body)), 10)
	c.header = append(c.header, 0)

	c.h.Reset()
	c.h.Write(c.header)
	c.h.Write(c.body)
	c.sum = c.h.Sum(c.sum[:0])
	return hex.EncodeToString(c.sum)
}

// HashCommit computes the object id git would assign to d without writing
// anything.
func HashCommit(format ObjectFormat, d *CommitDescriptor) string {
	return newCommitHasher(format).hash(d)
}

// Commit is a commit read back from the repository.
type Commit struct {
	ID        string
	Tree      string
	Parents   []string
	Author    Signature
	Committer Signature
	Encoding  string
	Signed    bool
	Message   string
	Raw       string // the object body exactly as stored
}

// Parent returns the single parent of c, or "" for a root commit.
// Merge commits are rejected.
func (c *Commit) Parent() (string, error) {
	switch len(c.Parents) {
	case 0:
		return "", nil
	case 1:
		return c.Parents[0], nil
	default:
		return "", Usagef("commit %s has %d parents: merge commits are not supported", c.ID, len(c.Parents))
	}
}

// ParseCommit parses a raw commit object body as printed by
// `git cat-file commit <id>`.
func ParseCommit(id string, raw []byte) (*Commit, error) {
	header, message, found := bytes.Cut(raw, []byte("\n\n"))
	if !found {
		header = bytes.TrimSuffix(raw, []byte("\n"))
	}

	c := &Commit{ID: id, Message: string(message), Raw: string(raw)}
	for _, line := range strings.Split(string(header), "\n") {
		if strings.HasPrefix(line, " ") {
			// continuation of a multi-line header such as gpgsig
			continue
		}
		key, value, _ := strings.Cut(line, " ")
		switch key {
		case "tree":
			c.Tree = value
		case "parent":
			c.Parents = append(c.Parents, value)
		case "author":
			sig, err := ParseSignature(value)
			if err != nil {
				return nil, fmt.Errorf("commit %s: author: %w", id, err)
			}
			c.Author = sig
		case "committer":
			sig, err := ParseSignature(value)
			if err != nil {
				return nil, fmt.Errorf("commit %s: committer: %w", id, err)
			}
			c.Committer = sig
		case "encoding":
			c.Encoding = value
		case "gpgsig", "gpgsig-sha256":
			c.Signed = true
		}
	}

	if c.Tree == "" {
		return nil, fmt.Errorf("commit %s: missing tree header", id)
	}
	return c, nil
}
