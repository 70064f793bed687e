package logging

import (
	"bytes"
	"strings"
	"testing"

	"go.viam.com/test"
)

func newBufferLogger(buf *bytes.Buffer, level Level) Logger {
	return &impl{"impl", NewAtomicLevelAt(level), true, []Appender{NewWriterAppender(buf)}}
}

func readLine(t *testing.T, buf *bytes.Buffer) []string {
	t.Helper()
	line, err := buf.ReadString('\n')
	test.That(t, err, test.ShouldBeNil)
	return strings.Split(strings.TrimSuffix(line, "\n"), "\t")
}

func TestConsoleOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf, DEBUG)

	logger.Info("lines found: ", 4)
	parts := readLine(t, &buf)
	test.That(t, len(parts), test.ShouldEqual, 5)
	test.That(t, parts[1], test.ShouldEqual, "INFO")
	test.That(t, parts[2], test.ShouldEqual, "impl")
	test.That(t, parts[3], test.ShouldStartWith, "logging/impl_test.go:")
	test.That(t, parts[4], test.ShouldEqual, "lines found: 4")

	logger.Debugf("ransac %d iterations", 300)
	parts = readLine(t, &buf)
	test.That(t, parts[1], test.ShouldEqual, "DEBUG")
	test.That(t, parts[4], test.ShouldEqual, "ransac 300 iterations")

	logger.Warnw("discarded", "reason", "convexity", "count", 2)
	parts = readLine(t, &buf)
	test.That(t, len(parts), test.ShouldEqual, 6)
	test.That(t, parts[1], test.ShouldEqual, "WARN")
	test.That(t, parts[5], test.ShouldEqual, `{"reason":"convexity","count":2}`)

	logger.Errorw("unpaired", "key")
	parts = readLine(t, &buf)
	test.That(t, parts[5], test.ShouldContainSubstring, "unpaired log key")
}

func TestLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf, WARN)

	logger.Debug("dropped")
	logger.Info("dropped")
	test.That(t, buf.Len(), test.ShouldEqual, 0)

	logger.Error("kept")
	test.That(t, readLine(t, &buf)[1], test.ShouldEqual, "ERROR")

	logger.SetLevel(DEBUG)
	test.That(t, logger.GetLevel(), test.ShouldEqual, DEBUG)
	logger.Debug("kept")
	test.That(t, readLine(t, &buf)[1], test.ShouldEqual, "DEBUG")

	level, err := LevelFromString("Warning")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, level, test.ShouldEqual, WARN)
	_, err = LevelFromString("loud")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "unknown log level")
}

func TestSublogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf, INFO)
	sub := logger.Sublogger("lifter")

	sub.Info("hello")
	parts := readLine(t, &buf)
	test.That(t, parts[2], test.ShouldEqual, "impl.lifter")
	test.That(t, sub.GetLevel(), test.ShouldEqual, INFO)

	// the sublogger level is independent
	sub.SetLevel(ERROR)
	test.That(t, logger.GetLevel(), test.ShouldEqual, INFO)
	test.That(t, logger.Sync(), test.ShouldBeNil)
}

func TestObservedTestLogger(t *testing.T) {
	logger, logs := NewObservedTestLogger(t)
	logger.Infow("statistics", "discont", 3)
	logger.Debug("detail")

	test.That(t, logs.Len(), test.ShouldEqual, 2)
	test.That(t, logs.FilterMessage("statistics").Len(), test.ShouldEqual, 1)
	entry := logs.All()[0]
	test.That(t, entry.ContextMap()["discont"], test.ShouldEqual, int64(3))
}
