//go:build js && wasm

package main

import (
	"encoding/json"
	"syscall/js"

	"github.com/inamate/kfedit/internal/canvas"
	"github.com/inamate/kfedit/internal/document"
	"github.com/inamate/kfedit/internal/engine"
	"github.com/inamate/kfedit/internal/keyframe"
)

var (
	eng  *engine.Engine
	opts = engine.DefaultOptions()
)

func main() {
	loadEngine(document.NewSampleProperty())

	// Create the engine API object
	kfedit := js.Global().Get("Object").New()

	// --- Commands (frontend → engine) ---
	kfedit.Set("loadProperty", js.FuncOf(loadProperty))
	kfedit.Set("loadSampleProperty", js.FuncOf(loadSampleProperty))
	kfedit.Set("setClipFrame", js.FuncOf(intCommand((*engine.Engine).SetClipFrame)))
	kfedit.Set("setClipLength", js.FuncOf(intCommand((*engine.Engine).SetClipLength)))
	kfedit.Set("resize", js.FuncOf(resize))
	kfedit.Set("setEditorActive", js.FuncOf(setEditorActive))
	kfedit.Set("press", js.FuncOf(press))
	kfedit.Set("motion", js.FuncOf(pointerCommand((*engine.Engine).Motion)))
	kfedit.Set("release", js.FuncOf(pointerCommand((*engine.Engine).Release)))
	kfedit.Set("cancel", js.FuncOf(command((*engine.Engine).CancelGesture)))
	kfedit.Set("scroll", js.FuncOf(scroll))
	kfedit.Set("selectKeyframe", js.FuncOf(intCommand((*engine.Engine).SelectKeyframe)))
	kfedit.Set("addKeyframe", js.FuncOf(command((*engine.Engine).AddKeyframe)))
	kfedit.Set("deleteKeyframe", js.FuncOf(intCommand((*engine.Engine).DeleteKeyframe)))
	kfedit.Set("moveActiveKeyframe", js.FuncOf(intCommand((*engine.Engine).MoveActiveKeyframe)))
	kfedit.Set("setMode", js.FuncOf(setMode))
	kfedit.Set("setOpacity", js.FuncOf(setOpacity))
	kfedit.Set("cloneFromPrev", js.FuncOf(command((*engine.Engine).CloneFromPrev)))
	kfedit.Set("cloneFromNext", js.FuncOf(command((*engine.Engine).CloneFromNext)))
	kfedit.Set("menu", js.FuncOf(menu))
	kfedit.Set("nudge", js.FuncOf(nudge))
	kfedit.Set("nudgeScale", js.FuncOf(nudgeScale))

	// --- Queries (frontend ← engine) ---
	kfedit.Set("render", js.FuncOf(render))
	kfedit.Set("getState", js.FuncOf(getState))
	kfedit.Set("getProperty", js.FuncOf(getProperty))
	kfedit.Set("hitTest", js.FuncOf(hitTest))
	kfedit.Set("valueAt", js.FuncOf(valueAt))
	kfedit.Set("getRevision", js.FuncOf(getRevision))

	// Register on global scope
	js.Global().Set("kfeditEngine", kfedit)

	// Signal that WASM is ready
	js.Global().Set("kfeditWasmReady", js.ValueOf(true))

	// Keep Go runtime alive
	select {}
}

func loadEngine(p *document.Property) error {
	e, err := engine.New(p, opts)
	if err != nil {
		return err
	}
	eng = e
	return nil
}

func errorValue(err error) js.Value {
	return js.ValueOf(map[string]any{"error": err.Error()})
}

func okValue() js.Value {
	return js.ValueOf(map[string]any{"ok": true})
}

// --- Command Handlers ---

func command(fn func(*engine.Engine)) func(js.Value, []js.Value) any {
	return func(this js.Value, args []js.Value) any {
		fn(eng)
		return nil
	}
}

func intCommand(fn func(*engine.Engine, int)) func(js.Value, []js.Value) any {
	return func(this js.Value, args []js.Value) any {
		if len(args) < 1 {
			return nil
		}
		fn(eng, args[0].Int())
		return nil
	}
}

// modifiers reads optional shift and ctrl flags after x and y.
func modifiers(args []js.Value) canvas.Modifiers {
	var m canvas.Modifiers
	if len(args) > 2 {
		m.Shift = args[2].Truthy()
	}
	if len(args) > 3 {
		m.Ctrl = args[3].Truthy()
	}
	return m
}

func pointerCommand(fn func(*engine.Engine, float64, float64, canvas.Modifiers)) func(js.Value, []js.Value) any {
	return func(this js.Value, args []js.Value) any {
		if len(args) < 2 {
			return nil
		}
		fn(eng, args[0].Float(), args[1].Float(), modifiers(args))
		return nil
	}
}

func loadProperty(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return js.ValueOf(map[string]any{"error": "missing property JSON"})
	}

	p, err := document.Parse([]byte(args[0].String()))
	if err != nil {
		return errorValue(err)
	}
	if err := loadEngine(p); err != nil {
		return errorValue(err)
	}
	return okValue()
}

func loadSampleProperty(this js.Value, args []js.Value) any {
	if err := loadEngine(document.NewSampleProperty()); err != nil {
		return errorValue(err)
	}
	return okValue()
}

func resize(this js.Value, args []js.Value) any {
	if len(args) < 2 {
		return nil
	}
	yFract := opts.YFract
	if len(args) > 2 {
		yFract = args[2].Float()
	}
	opts.PanelWidth, opts.PanelHeight, opts.YFract = args[0].Float(), args[1].Float(), yFract
	eng.Resize(opts.PanelWidth, opts.PanelHeight, opts.YFract)
	return nil
}

func setEditorActive(this js.Value, args []js.Value) any {
	eng.SetEditorActive(len(args) < 1 || args[0].Truthy())
	return nil
}

func press(this js.Value, args []js.Value) any {
	if len(args) < 2 {
		return js.ValueOf(false)
	}
	return js.ValueOf(eng.Press(args[0].Float(), args[1].Float(), modifiers(args)))
}

func scroll(this js.Value, args []js.Value) any {
	eng.Scroll(len(args) > 0 && args[0].Truthy())
	return nil
}

func setMode(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return nil
	}
	mode, err := keyframe.ParseMode(args[0].String())
	if err != nil {
		return errorValue(err)
	}
	eng.SetActiveMode(mode)
	return okValue()
}

// setOpacity sets the active keyframe's opacity; null or undefined clears it.
func setOpacity(this js.Value, args []js.Value) any {
	var o keyframe.Opacity
	if len(args) > 0 && args[0].Type() == js.TypeNumber {
		o = keyframe.OpacityOf(args[0].Float())
	}
	eng.SetActiveOpacity(o)
	return nil
}

func menu(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return nil
	}
	if err := eng.ApplyMenu(engine.MenuAction(args[0].String())); err != nil {
		return errorValue(err)
	}
	return okValue()
}

func nudge(this js.Value, args []js.Value) any {
	if len(args) < 2 {
		return nil
	}
	eng.Nudge(args[0].Float(), args[1].Float())
	return nil
}

func nudgeScale(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return nil
	}
	eng.NudgeScale(args[0].Float())
	return nil
}

// --- Query Handlers ---

func render(this js.Value, args []js.Value) any {
	out, err := engine.DrawCommandsToJSON(eng.DrawCommands())
	if err != nil {
		return js.ValueOf("[]")
	}
	return js.ValueOf(out)
}

func getState(this js.Value, args []js.Value) any {
	return js.ValueOf(eng.StateJSON())
}

func getProperty(this js.Value, args []js.Value) any {
	return js.ValueOf(eng.PropertyJSON())
}

func hitTest(this js.Value, args []js.Value) any {
	if len(args) < 2 {
		return js.ValueOf(int(canvas.NoHit))
	}
	return js.ValueOf(int(eng.HitTest(args[0].Float(), args[1].Float())))
}

func valueAt(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return nil
	}
	shape, opacity := eng.ValueAt(args[0].Int())
	out := map[string]any{"value": keyframe.Components(shape)}
	if opacity.Valid {
		out["opacity"] = opacity.Value
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil
	}
	return js.ValueOf(string(data))
}

func getRevision(this js.Value, args []js.Value) any {
	return js.ValueOf(eng.Revision())
}
