// Package history keeps a git revision trail of every record's content.
package history

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/DivyanshMauryaaa/testgem/internal/store"
)

const contentFile = "content.md"

var ErrRevisionNotFound = errors.New("revision not found")

type Commit struct {
	Hash      string    `json:"hash"`
	Message   string    `json:"message"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
}

// Snapshot is a record as it looked at one commit.
type Snapshot struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type Service struct {
	baseDir string
	lockMu  sync.Mutex
	locks   map[string]*sync.Mutex
}

func New(baseDir string) *Service {
	return &Service{
		baseDir: baseDir,
		locks:   make(map[string]*sync.Mutex),
	}
}

// Commit writes the record to its repository and commits it, creating the
// repository on first use. A commit with no changes returns the current head.
func (s *Service) Commit(r store.Record, author, message string) (Commit, error) {
	key := lockKey(r.Kind, r.ID)
	lock := s.recordLock(key)
	lock.Lock()
	defer lock.Unlock()

	repo, err := s.openOrInit(r.Kind, r.ID)
	if err != nil {
		return Commit{}, err
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return Commit{}, fmt.Errorf("open worktree: %w", err)
	}

	root := worktree.Filesystem.Root()
	if err := os.WriteFile(filepath.Join(root, contentFile), []byte(render(r.Title, r.Content)), 0o644); err != nil {
		return Commit{}, fmt.Errorf("write %s: %w", contentFile, err)
	}
	if _, err := worktree.Add(contentFile); err != nil {
		return Commit{}, fmt.Errorf("git add content: %w", err)
	}

	hash, err := worktree.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  author,
			Email: fmt.Sprintf("%s@users.testgem.local", sanitizeEmail(author)),
			When:  time.Now(),
		},
	})
	if errors.Is(err, git.ErrEmptyCommit) {
		head, headErr := repo.Head()
		if headErr != nil {
			return Commit{}, fmt.Errorf("resolve head: %w", headErr)
		}
		hash = head.Hash()
	} else if err != nil {
		return Commit{}, fmt.Errorf("commit content: %w", err)
	}

	commitObj, err := repo.CommitObject(hash)
	if err != nil {
		return Commit{}, fmt.Errorf("read commit object: %w", err)
	}
	return toCommit(commitObj), nil
}

// Log lists commits newest first. A record without history yields an empty list.
func (s *Service) Log(kind store.Kind, id string, limit int) ([]Commit, error) {
	lock := s.recordLock(lockKey(kind, id))
	lock.Lock()
	defer lock.Unlock()

	repo, err := git.PlainOpen(s.repoPath(kind, id))
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return []Commit{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open repo: %w", err)
	}

	head, err := repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return []Commit{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve head: %w", err)
	}

	iter, err := repo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	defer iter.Close()

	items := make([]Commit, 0)
	err = iter.ForEach(func(commitObj *object.Commit) error {
		items = append(items, toCommit(commitObj))
		if limit > 0 && len(items) >= limit {
			return io.EOF
		}
		return nil
	})
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("iterate log: %w", err)
	}
	return items, nil
}

// At returns the record's title and content as of a commit hash or short hash.
func (s *Service) At(kind store.Kind, id, hash string) (Snapshot, error) {
	lock := s.recordLock(lockKey(kind, id))
	lock.Lock()
	defer lock.Unlock()

	repo, err := git.PlainOpen(s.repoPath(kind, id))
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return Snapshot{}, ErrRevisionNotFound
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("open repo: %w", err)
	}
	resolved, err := resolveHash(repo, hash)
	if err != nil {
		return Snapshot{}, err
	}
	commitObj, err := repo.CommitObject(resolved)
	if errors.Is(err, plumbing.ErrObjectNotFound) {
		return Snapshot{}, ErrRevisionNotFound
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("read commit %s: %w", hash, err)
	}
	file, err := commitObj.File(contentFile)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load %s from commit: %w", contentFile, err)
	}
	text, err := file.Contents()
	if err != nil {
		return Snapshot{}, fmt.Errorf("read %s: %w", contentFile, err)
	}
	title, content := parse(text)
	return Snapshot{Title: title, Content: content}, nil
}

func (s *Service) Remove(kind store.Kind, id string) error {
	key := lockKey(kind, id)
	lock := s.recordLock(key)
	lock.Lock()
	err := os.RemoveAll(s.repoPath(kind, id))
	lock.Unlock()

	s.lockMu.Lock()
	delete(s.locks, key)
	s.lockMu.Unlock()

	if err != nil {
		return fmt.Errorf("remove history: %w", err)
	}
	return nil
}

func (s *Service) openOrInit(kind store.Kind, id string) (*git.Repository, error) {
	path := s.repoPath(kind, id)
	repo, err := git.PlainOpen(path)
	if err == nil {
		return repo, nil
	}
	if !errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("open repo: %w", err)
	}

	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create repo dir: %w", err)
	}
	repo, err = git.PlainInitWithOptions(path, &git.PlainInitOptions{
		InitOptions: git.InitOptions{DefaultBranch: plumbing.Main},
	})
	if err != nil {
		return nil, fmt.Errorf("init repo: %w", err)
	}
	return repo, nil
}

func (s *Service) repoPath(kind store.Kind, id string) string {
	return filepath.Join(s.baseDir, string(kind), filepath.Base(filepath.Clean("/"+id)))
}

func (s *Service) recordLock(key string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	lock, ok := s.locks[key]
	if ok {
		return lock
	}
	lock = &sync.Mutex{}
	s.locks[key] = lock
	return lock
}

func lockKey(kind store.Kind, id string) string {
	return string(kind) + "/" + id
}

func render(title, content string) string {
	return "# " + title + "\n\n" + content
}

func parse(text string) (string, string) {
	head, rest, _ := strings.Cut(text, "\n\n")
	return strings.TrimPrefix(head, "# "), rest
}

func toCommit(commitObj *object.Commit) Commit {
	return Commit{
		Hash:      commitObj.Hash.String()[:7],
		Message:   strings.TrimSpace(commitObj.Message),
		Author:    commitObj.Author.Name,
		CreatedAt: commitObj.Author.When,
	}
}

func sanitizeEmail(input string) string {
	out := make([]rune, 0, len(input))
	for _, r := range input {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			out = append(out, r)
			continue
		}
		if r == ' ' || r == '-' || r == '_' {
			out = append(out, '.')
		}
	}
	if len(out) == 0 {
		return "user"
	}
	return string(out)
}

func resolveHash(repo *git.Repository, hash string) (plumbing.Hash, error) {
	if len(hash) == 40 {
		return plumbing.NewHash(hash), nil
	}
	resolved, err := repo.ResolveRevision(plumbing.Revision(hash))
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("resolve hash %s: %w: %w", hash, ErrRevisionNotFound, err)
	}
	return *resolved, nil
}
