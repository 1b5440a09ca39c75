package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/rxtech-lab/argo-execution/internal/logger"
	"github.com/rxtech-lab/argo-execution/pkg/errors"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

var (
	runPattern  = regexp.MustCompile(`^run_(\d+)$`)
	datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// Session manages the archive folder of one engine run:
//
//	{root}/{YYYY-MM-DD}/run_N/
//
// N is one more than the highest run number already present for the start date.
// The run keeps its number when it crosses into a new date.
type Session struct {
	root         string
	runNumber    int
	runID        string
	sessionStart time.Time
	currentDate  string
	runPath      string
	mu           sync.Mutex
	logger       *logger.Logger
}

// NewSession picks the next run number under root for the date of start and creates its folder.
func NewSession(root string, start time.Time, log *logger.Logger) (*Session, error) {
	s := &Session{
		root:         root,
		sessionStart: start,
		currentDate:  start.Format(dateLayout),
		logger:       log,
	}

	runNumber, err := nextRunNumber(filepath.Join(root, s.currentDate))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeSessionFailed, "failed to determine run number", err)
	}

	s.runNumber = runNumber
	s.runID = fmt.Sprintf("run_%d", runNumber)

	if err := s.createRunFolder(); err != nil {
		return nil, err
	}

	s.logger.Info("Session initialized",
		zap.String("run_id", s.runID),
		zap.String("date", s.currentDate),
		zap.String("path", s.runPath),
	)

	return s, nil
}

func nextRunNumber(datePath string) (int, error) {
	entries, err := os.ReadDir(datePath)
	if os.IsNotExist(err) {
		return 1, nil
	}

	if err != nil {
		return 0, err
	}

	highest := 0

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		matches := runPattern.FindStringSubmatch(entry.Name())
		if len(matches) != 2 {
			continue
		}

		if num, err := strconv.Atoi(matches[1]); err == nil && num > highest {
			highest = num
		}
	}

	return highest + 1, nil
}

func (s *Session) createRunFolder() error {
	s.runPath = filepath.Join(s.root, s.currentDate, s.runID)

	if err := os.MkdirAll(s.runPath, 0755); err != nil {
		return errors.Wrap(errors.ErrCodeSessionFailed, "failed to create run folder", err)
	}

	return nil
}

// HandleDateBoundary moves the session to the folder of timestamp's date.
// It reports whether the date changed.
func (s *Session) HandleDateBoundary(timestamp time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	date := timestamp.Format(dateLayout)
	if date == s.currentDate {
		return false, nil
	}

	oldDate := s.currentDate
	s.currentDate = date

	if err := s.createRunFolder(); err != nil {
		return false, err
	}

	s.logger.Info("Date boundary crossed, created new folder",
		zap.String("old_date", oldDate),
		zap.String("new_date", date),
		zap.String("run_id", s.runID),
		zap.String("path", s.runPath),
	)

	return true, nil
}

func (s *Session) RunID() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.runID
}

func (s *Session) RunNumber() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.runNumber
}

func (s *Session) Start() time.Time {
	return s.sessionStart
}

func (s *Session) CurrentDate() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.currentDate
}

// RunPath returns the folder of the current date.
func (s *Session) RunPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.runPath
}

// FilePath joins filename onto the current run folder.
func (s *Session) FilePath(filename string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return filepath.Join(s.runPath, filename)
}

// ListRuns returns the run folders recorded under root for date, in run order.
func ListRuns(root, date string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(root, date))
	if os.IsNotExist(err) {
		return []string{}, nil
	}

	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeSessionFailed, "failed to read date directory", err)
	}

	runs := make([]string, 0, len(entries))
	numbers := make(map[string]int, len(entries))

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		matches := runPattern.FindStringSubmatch(entry.Name())
		if len(matches) != 2 {
			continue
		}

		num, _ := strconv.Atoi(matches[1])
		numbers[entry.Name()] = num
		runs = append(runs, entry.Name())
	}

	sort.Slice(runs, func(i, j int) bool {
		return numbers[runs[i]] < numbers[runs[j]]
	})

	return runs, nil
}

// ListDates returns the dates under root that hold session data, oldest first.
func ListDates(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if os.IsNotExist(err) {
		return []string{}, nil
	}

	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeSessionFailed, "failed to read data output directory", err)
	}

	dates := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() && datePattern.MatchString(entry.Name()) {
			dates = append(dates, entry.Name())
		}
	}

	sort.Strings(dates)

	return dates, nil
}
