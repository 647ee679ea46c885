// Copyright 2023 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package logger

import (
	"bytes"
	"log/slog"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zlomekfs/zlomekfs/cfg"
)

func redirectLogsToGivenBuffer(buf *bytes.Buffer, level string) {
	var programLevel = new(slog.LevelVar)
	defaultLogger = slog.New(
		defaultLoggerFactory.createJsonOrTextHandler(buf, programLevel, "TestLogs: "),
	)
	setLoggingLevel(level, programLevel)
}

func fetchLogOutputForSpecifiedSeverityLevel(level string, functions []func()) []string {
	var buf bytes.Buffer
	redirectLogsToGivenBuffer(&buf, level)

	var output []string
	for _, f := range functions {
		f()
		output = append(output, buf.String())
		buf.Reset()
	}
	return output
}

func getTestLoggingFunctions() []func() {
	return []func(){
		func() { Tracef("www.traceExample.com") },
		func() { Debugf("www.debugExample.com") },
		func() { Infof("www.infoExample.com") },
		func() { Warnf("www.warningExample.com") },
		func() { Errorf("www.errorExample.com") },
	}
}

func validateOutput(t *testing.T, expected []string, output []string) {
	for i := range output {
		if expected[i] == "" {
			assert.Equal(t, expected[i], output[i])
			continue
		}
		assert.Regexp(t, regexp.MustCompile(expected[i]), output[i])
	}
}

func validateLogOutputAtSpecifiedFormatAndSeverity(t *testing.T, format string, level string, expectedOutput []string) {
	defaultLoggerFactory.format = format
	output := fetchLogOutputForSpecifiedSeverityLevel(level, getTestLoggingFunctions())
	validateOutput(t, expectedOutput, output)
}

func TestTextFormatLogsLogLevelOFF(t *testing.T) {
	validateLogOutputAtSpecifiedFormatAndSeverity(t, "text", cfg.OFF, []string{"", "", "", "", ""})
}

func TestTextFormatLogsLogLevelERROR(t *testing.T) {
	validateLogOutputAtSpecifiedFormatAndSeverity(t, "text", cfg.ERROR,
		[]string{"", "", "", "", `severity=ERROR message="TestLogs: www.errorExample.com"`})
}

func TestTextFormatLogsLogLevelTRACE(t *testing.T) {
	validateLogOutputAtSpecifiedFormatAndSeverity(t, "text", cfg.TRACE, []string{
		`severity=TRACE message="TestLogs: www.traceExample.com"`,
		`severity=DEBUG message="TestLogs: www.debugExample.com"`,
		`severity=INFO message="TestLogs: www.infoExample.com"`,
		`severity=WARNING message="TestLogs: www.warningExample.com"`,
		`severity=ERROR message="TestLogs: www.errorExample.com"`,
	})
}

func TestJSONFormatLogsLogLevelINFO(t *testing.T) {
	validateLogOutputAtSpecifiedFormatAndSeverity(t, "json", cfg.INFO, []string{
		"", "",
		`"severity":"INFO","message":"TestLogs: www.infoExample.com"`,
		`"severity":"WARNING","message":"TestLogs: www.warningExample.com"`,
		`"severity":"ERROR","message":"TestLogs: www.errorExample.com"`,
	})
}

func TestSetLoggingLevel(t *testing.T) {
	testData := []struct {
		inputLevel    string
		expectedLevel slog.Level
	}{
		{cfg.TRACE, LevelTrace},
		{cfg.DEBUG, LevelDebug},
		{cfg.WARNING, LevelWarn},
		{cfg.ERROR, LevelError},
		{cfg.OFF, LevelOff},
	}

	for _, test := range testData {
		programLevel := new(slog.LevelVar)
		setLoggingLevel(test.inputLevel, programLevel)
		assert.Equal(t, test.expectedLevel, programLevel.Level())
	}
}

func TestSetLogFormat(t *testing.T) {
	defaultLoggerFactory = &loggerFactory{sysWriter: bytesDiscard{}, level: cfg.INFO}

	SetLogFormat("json")

	assert.Equal(t, "json", defaultLoggerFactory.format)
}

type bytesDiscard struct{}

func (bytesDiscard) Write(p []byte) (int, error) { return len(p), nil }
