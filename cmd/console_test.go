// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"strings"
	"testing"

	"github.com/Thermoquad/pidconf/pkg/pidconf"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"write", "kp", "1.5"}, tokenize("  WRITE   Kp 1.5 "))
	assert.Empty(t, tokenize("   "))
}

func TestConsoleWriteThenRead(t *testing.T) {
	dev := pidconf.NewDevice(zerolog.Nop())
	c, out := deviceConsole(t, dev)

	done, err := c.execute("write kp 1.5")
	require.NoError(t, err)
	assert.False(t, done)
	assert.Contains(t, plain(out.String()), "ok: kp = 1.5")

	v, err := dev.Value("kp")
	require.NoError(t, err)
	assert.Equal(t, 1.5, v)

	out.Reset()
	_, err = c.execute("READ KP")
	require.NoError(t, err)
	assert.Equal(t, "kp: 1.5\n", plain(out.String()))
	assert.False(t, c.failed)
}

func TestConsoleLocalRejectsSkipDevice(t *testing.T) {
	dev := pidconf.NewDevice(zerolog.Nop())
	c, out := deviceConsole(t, dev)

	lines := []string{
		"write recv-samples 4",
		"write pid-blend 1.5",
		"write kp abc",
		"read foo",
		"raw zz",
		"raw",
	}
	for _, line := range lines {
		c.failed = false
		done, err := c.execute(line)
		require.NoError(t, err, line)
		assert.False(t, done, line)
		assert.True(t, c.failed, line)
	}

	stats := c.sess.Statistics()
	assert.Equal(t, uint64(0), stats.Exchanges)
	assert.Equal(t, uint64(len(lines)), stats.LocalRejects)

	text := plain(out.String())
	assert.Contains(t, text, "write recv-samples failed")
	assert.Contains(t, text, "unknown parameter")
}

func TestConsoleDeviceErrorIsRecoverable(t *testing.T) {
	dev := pidconf.NewDevice(zerolog.Nop())
	c, out := deviceConsole(t, dev)

	// Opcode 0x30 with a one-byte payload: kp needs two bytes
	_, err := c.execute("raw 30 1")
	require.NoError(t, err)
	assert.Equal(t, "raw response: e3\n", plain(out.String()))
	assert.False(t, c.failed)

	out.Reset()
	_, err = c.execute("read kp")
	require.NoError(t, err)
	assert.Equal(t, "kp: 0\n", plain(out.String()))
}

func TestConsoleRawPrintsStatusAndPayload(t *testing.T) {
	dev := pidconf.NewDevice(zerolog.Nop())
	require.NoError(t, dev.Set("kd", 2))
	c, out := deviceConsole(t, dev)

	_, err := c.execute("raw 0x02")
	require.NoError(t, err)
	assert.Equal(t, "raw response: ac 0 2\n", plain(out.String()))
}

func TestConsoleFinish(t *testing.T) {
	dev := pidconf.NewDevice(zerolog.Nop())
	c, _ := deviceConsole(t, dev)

	done, err := c.execute("finish")
	require.NoError(t, err)
	assert.True(t, done)
	assert.True(t, c.sess.Finished())
}

func TestConsoleUnknownCommand(t *testing.T) {
	dev := pidconf.NewDevice(zerolog.Nop())
	c, out := deviceConsole(t, dev)

	for _, line := range []string{"bogus", "read", "write kp"} {
		c.failed = false
		done, err := c.execute(line)
		require.NoError(t, err)
		assert.False(t, done)
		assert.True(t, c.failed, line)
	}
	assert.Contains(t, plain(out.String()), `invalid command "bogus"`)

	out.Reset()
	_, err := c.execute("")
	require.NoError(t, err)
	assert.Empty(t, out.String())
}

func TestConsoleHelpParamsStats(t *testing.T) {
	dev := pidconf.NewDevice(zerolog.Nop())
	c, out := deviceConsole(t, dev)

	_, err := c.execute("help")
	require.NoError(t, err)
	assert.Contains(t, out.String(), "write <param> <value>")

	out.Reset()
	_, err = c.execute("params")
	require.NoError(t, err)
	for _, p := range pidconf.Parameters() {
		assert.Contains(t, out.String(), p.Name)
	}

	out.Reset()
	_, err = c.execute("stats")
	require.NoError(t, err)
	assert.Contains(t, out.String(), "=== Statistics")
}

func TestConsoleTimeoutIsFatal(t *testing.T) {
	sess := pidconf.NewSession(&silentChannel{})
	require.NoError(t, sess.Handshake())
	c := newConsole(sess, &strings.Builder{}, zerolog.Nop())

	_, err := c.execute("read kp")
	require.Error(t, err)
	assert.ErrorIs(t, err, pidconf.ErrTimeout)
	assert.Error(t, sess.Err())

	_, err = c.execute("read ki")
	assert.ErrorIs(t, err, pidconf.ErrSessionBroken)
}

func TestRunConsoleStopsAtFinish(t *testing.T) {
	dev := pidconf.NewDevice(zerolog.Nop())
	c, out := deviceConsole(t, dev)

	input := "write enc-frames 12\nread enc-frames\nfinish\nread kp\n"
	err := runConsole(c, newScannerSource(strings.NewReader(input)), zerolog.Nop())
	require.NoError(t, err)

	text := plain(out.String())
	assert.Contains(t, text, "enc-frames: 12")
	assert.NotContains(t, text, "kp:")

	v, err := dev.Value("enc-frames")
	require.NoError(t, err)
	assert.Equal(t, 12.0, v)
}

func TestRunConsoleEndOfInput(t *testing.T) {
	dev := pidconf.NewDevice(zerolog.Nop())
	c, _ := deviceConsole(t, dev)

	err := runConsole(c, newScannerSource(strings.NewReader("read kp\n")), zerolog.Nop())
	require.NoError(t, err)
	assert.False(t, c.sess.Finished())
}

func TestRunConsoleFatalError(t *testing.T) {
	sess := pidconf.NewSession(&silentChannel{})
	require.NoError(t, sess.Handshake())
	c := newConsole(sess, &strings.Builder{}, zerolog.Nop())

	err := runConsole(c, newScannerSource(strings.NewReader("read kp\nfinish\n")), zerolog.Nop())
	assert.ErrorIs(t, err, pidconf.ErrTimeout)
}

func TestRunLine(t *testing.T) {
	dev := pidconf.NewDevice(zerolog.Nop())
	c, _ := deviceConsole(t, dev)

	assert.NoError(t, runLine(c, "write right-board 1"))
	assert.ErrorIs(t, runLine(c, "write right-board 2"), errOneShotFailed)
	assert.NoError(t, runLine(c, "raw 3c"))
	assert.NoError(t, runLine(c, "read right-board"))
}

func TestCompleteLine(t *testing.T) {
	assert.Equal(t, []string{"read", "raw"}, completeLine("r"))
	assert.Equal(t, []string{"write kp"}, completeLine("write kp"))
	assert.Len(t, completeLine("write k"), 3)
	assert.Contains(t, completeLine("read "), "read recv-samples")
	assert.Len(t, completeLine(""), len(consoleCommands))
	assert.Nil(t, completeLine("finish now"))
}
