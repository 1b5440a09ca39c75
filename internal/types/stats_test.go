package types

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type SessionStatsTestSuite struct {
	suite.Suite
	tempDir string
}

func (s *SessionStatsTestSuite) SetupTest() {
	tempDir, err := os.MkdirTemp("", "session_stats_test_*")
	s.Require().NoError(err)
	s.tempDir = tempDir
}

func (s *SessionStatsTestSuite) TearDownTest() {
	if s.tempDir != "" {
		os.RemoveAll(s.tempDir)
	}
}

func TestSessionStatsTestSuite(t *testing.T) {
	suite.Run(t, new(SessionStatsTestSuite))
}

func (s *SessionStatsTestSuite) TestWriteAndReadSessionStats() {
	path := filepath.Join(s.tempDir, "stats.yaml")
	now := time.Date(2025, 1, 13, 10, 0, 0, 0, time.UTC)

	stats := NewSessionStats("run_1", []string{"BTC/USDT"}, now)
	stats.TradeResult = TradeResult{
		NumberOfTrades:        4,
		NumberOfWinningTrades: 3,
		NumberOfLosingTrades:  1,
		WinRate:               0.75,
	}
	stats.TradePnl.RealizedPnL = 120
	stats.TotalFees = 2.5

	s.Require().NoError(WriteSessionStats(path, stats))

	read, err := ReadSessionStats(path)
	s.Require().NoError(err)
	s.Equal("run_1", read.ID)
	s.Equal("2025-01-13", read.Date)
	s.Equal([]string{"BTC/USDT"}, read.Pairs)
	s.Equal(4, read.TradeResult.NumberOfTrades)
	s.InDelta(0.75, read.TradeResult.WinRate, 1e-9)
	s.InDelta(120, read.TradePnl.RealizedPnL, 1e-9)
	s.InDelta(2.5, read.TotalFees, 1e-9)
	s.True(read.SessionStart.Equal(now))
}

func (s *SessionStatsTestSuite) TestReadSessionStats_MissingFile() {
	_, err := ReadSessionStats(filepath.Join(s.tempDir, "missing.yaml"))
	s.Error(err)
}

func (s *SessionStatsTestSuite) TestWriteSessionStats_InvalidPath() {
	err := WriteSessionStats(filepath.Join(s.tempDir, "missing", "dir", "stats.yaml"), SessionStats{})
	s.Error(err)
}
