package client

import (
	"fmt"
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/tomz197/volley/internal/draw"
	"github.com/tomz197/volley/internal/loop/config"
	"github.com/tomz197/volley/internal/loop/server"
)

// arenaSize is the logical edge of the plot, one unit per world unit.
const arenaSize = 2 * config.ArenaHalfSize

// aimLineScale turns launch strength into plot units for the aim line.
const aimLineScale = 0.5

// layout splits the terminal into the arena plot and the text panel.
type layout struct {
	termWidth  int
	termHeight int
	showPlot   bool
	plotCol    int // 0-based offset of the plot, leaving a column for the border
	plotRow    int
	plotWidth  int
	plotHeight int
	panelCol   int // 1-based column of the panel
}

// computeLayout fits a square plot next to the panel. Half-block pixels are
// square when a plot is twice as wide as it is tall.
func computeLayout(termWidth, termHeight int) layout {
	l := layout{termWidth: termWidth, termHeight: termHeight, plotWidth: 1, plotHeight: 1, panelCol: 1}

	availWidth := termWidth - config.PanelWidth - 3
	availHeight := termHeight - 2
	width := min(availWidth, config.MaxPlotWidth, 2*availHeight)
	height := width / 2
	if width < config.MinPlotWidth || height < config.MinPlotHeight {
		return l
	}

	l.showPlot = true
	l.plotCol = 1
	l.plotRow = 1
	l.plotWidth = width
	l.plotHeight = height
	l.panelCol = width + 4
	return l
}

// toPlot maps a world position onto the plot, looking down the Y axis.
func toPlot(v mgl64.Vec3) draw.Point {
	return draw.Point{X: v.X() + config.ArenaHalfSize, Y: v.Z() + config.ArenaHalfSize}
}

// drawFrame draws the current frame.
func (c *Client) drawFrame() error {
	// On game state or inactivity transitions, do a full terminal clear
	// so UI elements from the previous state don't persist on screen.
	stateChanged := c.state.GameState != c.state.prevGameState
	inactiveChanged := c.state.isInactive != c.state.wasInactive
	if stateChanged || inactiveChanged {
		c.chunkWriter.WriteString("\033[H\033[2J")
		c.canvas.ForceRedraw()
		c.state.prevGameState = c.state.GameState
		c.state.wasInactive = c.state.isInactive
	}

	centerX := c.layout.termWidth / 2
	centerY := c.layout.termHeight / 2

	switch {
	case c.state.GameState == GameStateShutdown:
		c.drawShutdownScreen(centerX, centerY)
	case c.state.isInactive:
		c.drawInactivityScreen(centerX, centerY)
	case c.state.GameState == GameStateStart:
		c.drawStartScreen(centerX, centerY)
	default:
		snapshot := c.server.GetSnapshot()
		if c.layout.showPlot {
			c.drawArena(snapshot)
			if err := c.canvas.Render(c.chunkWriter); err != nil {
				return err
			}
			if err := c.canvas.RenderBorder(c.chunkWriter); err != nil {
				return err
			}
		}
		c.drawPanel(snapshot)
	}

	return c.chunkWriter.Flush()
}

// drawArena plots targets, launchers, the aim line and every projectile.
func (c *Client) drawArena(snapshot *server.WorldSnapshot) {
	c.canvas.Clear()

	for _, t := range snapshot.Targets {
		c.canvas.DrawCircle(toPlot(t.Center), t.Radius, false)
	}

	for _, l := range snapshot.Launchers {
		radius := 0.8
		if l.ClientID == c.handle.ID {
			radius = 1.5
		}
		c.canvas.DrawCircle(toPlot(l.Position), radius, true)
	}

	aim := server.AimDirection(c.state.Aim.Yaw, c.state.Aim.Pitch)
	tip := c.handle.Launcher.Add(aim.Mul(c.state.Aim.Strength * aimLineScale))
	c.canvas.DrawLine(toPlot(c.handle.Launcher), toPlot(tip))

	for _, p := range snapshot.Projectiles {
		c.canvas.Set(toPlot(p.Position))
	}
}

// drawPanel draws the text panel. Every row is written at full width with
// a fixed row count per section so shrinking values leave nothing behind.
func (c *Client) drawPanel(snapshot *server.WorldSnapshot) {
	cw := c.chunkWriter
	col := c.layout.panelCol
	row := 1
	line := func(format string, args ...any) {
		if row <= c.layout.termHeight {
			cw.WriteAtf(col, row, config.PanelWidth, format, args...)
		}
		row++
	}

	line("VOLLEY  tick %d", snapshot.Tick)
	line("")

	line("Projectiles       in use/pool  peak")
	for i, id := range c.defs {
		marker := " "
		if i == c.state.Selected {
			marker = ">"
		}
		ps := snapshot.Stats.Pools[id]
		line("%s %d %-12s %4d/%-4d %5d", marker, i+1, id, ps.InUse, ps.Total, ps.Peak)
	}
	line("")

	line("Aim    yaw %4.0f°  pitch %3.0f°", degrees(c.state.Aim.Yaw), mgl64.RadToDeg(c.state.Aim.Pitch))
	line("Power  %.1f", c.state.Aim.Strength)
	line("")

	line("Active %-6d Players %d", snapshot.Stats.Active, snapshot.Players)
	line("Score  %-6d Hits %d", c.state.Score, c.state.Hits)
	line("")

	line("Top scores")
	for i := 0; i < config.TopScoreCount; i++ {
		if i < len(snapshot.TopScores) {
			e := snapshot.TopScores[i]
			line("%d. %-*s %6d", i+1, config.MaxUsernameLength, e.Username, e.Score)
		} else {
			line("")
		}
	}
	line("")

	line("Events")
	for i := 0; i < config.EventLogSize; i++ {
		if i < len(c.state.Events) {
			line("  %s", c.state.Events[i])
		} else {
			line("")
		}
	}
	line("")

	line("A/D turn  W/S pitch  +/- power")
	line("1-9 pick  SPACE fire  V volley")
	line("C clear  Q quit")
}

// degrees normalizes a yaw to [0, 360).
func degrees(rad float64) float64 {
	deg := math.Mod(mgl64.RadToDeg(rad), 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}

// drawInactivityScreen draws the inactivity warning screen.
func (c *Client) drawInactivityScreen(centerX, centerY int) {
	cw := c.chunkWriter
	title := "INACTIVITY WARNING"
	cw.WriteAt(centerX-len(title)/2, centerY-2, title)

	msg := fmt.Sprintf(
		"You have been inactive for too long. You will be disconnected in %d seconds.",
		int(config.InactivityDisconnectUser-time.Since(c.lastInput).Seconds()),
	)
	cw.WriteAt(centerX-len(msg)/2, centerY, msg)

	hint := "Press any key to continue"
	cw.WriteAt(centerX-len(hint)/2, centerY+2, hint)
}

// drawStartScreen draws the title screen.
func (c *Client) drawStartScreen(centerX, centerY int) {
	titleArt := []string{
		` __   _____  _    _    _____   __ `,
		` \ \ / / _ \| |  | |  | __\ \ / / `,
		`  \ V / (_) | |__| |__| _| \ V /  `,
		`   \_/ \___/|____|____|___| |_|   `,
		`                                  `,
	}

	titleWidth := 0
	for _, line := range titleArt {
		titleWidth = max(titleWidth, len(line))
	}

	cw := c.chunkWriter
	titleStartY := centerY - 9
	for i, line := range titleArt {
		cw.WriteAt(centerX-titleWidth/2, titleStartY+i, line)
	}

	subtitle := "~ Shared projectile arena over SSH ~"
	cw.WriteAt(centerX-len(subtitle)/2, titleStartY+len(titleArt)+1, subtitle)

	controlsY := titleStartY + len(titleArt) + 3
	controlHeader := "Controls"
	cw.WriteAt(centerX-len(controlHeader)/2, controlsY, controlHeader)

	controlLines := []string{
		"A D / < >  . . . . . . Turn",
		"W S / ^ v  . . . . .  Pitch",
		"+ -  . . . . . . . .  Power",
		"1-9  . . . . . . Projectile",
		"SPACE  . . . . . . . . Fire",
		"V  . . . . . . . . . Volley",
		"C  . . . . . .  Clear yours",
		"Q  . . . . . . . . . . Quit",
	}
	for i, line := range controlLines {
		cw.WriteAt(centerX-len(line)/2, controlsY+1+i, line)
	}

	if time.Now().UnixMilli()/600%2 == 0 {
		prompt := ">>  Press SPACE to Start  <<"
		cw.WriteAt(centerX-len(prompt)/2, controlsY+len(controlLines)+2, prompt)
	} else {
		cw.WriteAtf(centerX-14, controlsY+len(controlLines)+2, 28, "")
	}
}

// drawShutdownScreen draws the server shutdown notification screen.
func (c *Client) drawShutdownScreen(centerX, centerY int) {
	cw := c.chunkWriter
	title := "SERVER SHUTTING DOWN"
	cw.WriteAt(centerX-len(title)/2, centerY-3, title)

	msg1 := "The server is restarting for maintenance."
	cw.WriteAt(centerX-len(msg1)/2, centerY-1, msg1)

	msg2 := "Please reconnect in a moment."
	cw.WriteAt(centerX-len(msg2)/2, centerY, msg2)

	remaining := int(c.state.shutdownTimer) + 1
	countdown := fmt.Sprintf("Disconnecting in %d seconds...", remaining)
	cw.WriteAt(centerX-len(countdown)/2, centerY+2, countdown)

	hint := "Press Q to disconnect now"
	cw.WriteAt(centerX-len(hint)/2, centerY+4, hint)
}
