//go:build js && wasm

package main

import (
	"syscall/js"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/segmentio/encoding/json"
	"github.com/voxelsplace/voxkernel/api"
	"github.com/voxelsplace/voxkernel/job"
	"github.com/voxelsplace/voxkernel/vopl"
)

func bytesFromJS(v js.Value) []byte {
	buf := make([]byte, v.Get("length").Int())
	js.CopyBytesToGo(buf, v)
	return buf
}

func bytesToJS(b []byte) js.Value {
	arr := js.Global().Get("Uint8Array").New(len(b))
	js.CopyBytesToJS(arr, b)
	return arr
}

func jsonToJS(v any) js.Value {
	b, err := json.Marshal(v)
	if err != nil {
		return js.ValueOf(err.Error())
	}
	return js.ValueOf(string(b))
}

func vec3FromJS(v js.Value) mgl32.Vec3 {
	return mgl32.Vec3{
		float32(v.Index(0).Float()),
		float32(v.Index(1).Float()),
		float32(v.Index(2).Float()),
	}
}

// jobArg parses the optional YAML job passed at position i.
func jobArg(args []js.Value, i int) (job.Job, error) {
	if len(args) <= i || args[i].Type() != js.TypeString {
		return job.Default(), nil
	}
	return job.Parse([]byte(args[i].String()))
}

func rle2vopl(this js.Value, args []js.Value) any {
	if len(args) < 4 {
		return js.ValueOf("usage: rle2vopl(w, h, d, rle)")
	}
	out, err := api.FromRLE(args[0].Int(), args[1].Int(), args[2].Int(), args[3].String())
	if err != nil {
		return js.ValueOf(err.Error())
	}
	return bytesToJS(out)
}

func vopl2glb(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return js.ValueOf("missing vopl bytes")
	}
	j, err := jobArg(args, 1)
	if err != nil {
		return js.ValueOf(err.Error())
	}
	res, err := api.MeshGLB(bytesFromJS(args[0]), j)
	if err != nil {
		return js.ValueOf(err.Error())
	}
	return bytesToJS(res.GLB)
}

func fragment(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return js.ValueOf("missing vopl bytes")
	}
	j, err := jobArg(args, 1)
	if err != nil {
		return js.ValueOf(err.Error())
	}
	res, err := api.Fragment(bytesFromJS(args[0]), j, true, vopl.LayoutCDC, vopl.PackCompZstd)
	if err != nil {
		return js.ValueOf(err.Error())
	}
	result := js.Global().Get("Object").New()
	result.Set("pack", bytesToJS(res.Pack))
	result.Set("glb", bytesToJS(res.GLB))
	result.Set("fragments", res.Fragments)
	return result
}

func raycast(this js.Value, args []js.Value) any {
	if len(args) < 3 {
		return js.ValueOf("usage: raycast(vopl, origin, direction, all, job)")
	}
	all := len(args) > 3 && args[3].Truthy()
	j, err := jobArg(args, 4)
	if err != nil {
		return js.ValueOf(err.Error())
	}
	hits, err := api.Raycast(bytesFromJS(args[0]), j, vec3FromJS(args[1]), vec3FromJS(args[2]), all)
	if err != nil {
		return js.ValueOf(err.Error())
	}
	return jsonToJS(hits)
}

func colliders(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return js.ValueOf("missing vopl bytes")
	}
	j, err := jobArg(args, 1)
	if err != nil {
		return js.ValueOf(err.Error())
	}
	set, err := api.Colliders(bytesFromJS(args[0]), j)
	if err != nil {
		return js.ValueOf(err.Error())
	}
	return jsonToJS(set)
}

func packVopls(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return js.ValueOf("missing files object")
	}
	filesObj := args[0]
	files := map[string][]byte{}
	keys := js.Global().Get("Object").Call("keys", filesObj)
	for i := 0; i < keys.Length(); i++ {
		k := keys.Index(i).String()
		files[k] = bytesFromJS(filesObj.Get(k))
	}
	out, err := api.Pack(files, vopl.LayoutRaw, vopl.PackCompZlib)
	if err != nil {
		return js.ValueOf(err.Error())
	}
	return bytesToJS(out)
}

func unpackVoplpack(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return js.ValueOf("missing pack bytes")
	}
	files, err := api.Unpack(bytesFromJS(args[0]))
	if err != nil {
		return js.ValueOf(err.Error())
	}
	// name -> Uint8Array
	result := js.Global().Get("Object").New()
	for name, b := range files {
		result.Set(name, bytesToJS(b))
	}
	return result
}

func voplpack2glb(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return js.ValueOf("missing pack bytes")
	}
	j, err := jobArg(args, 1)
	if err != nil {
		return js.ValueOf(err.Error())
	}
	out, err := api.PackGLB(bytesFromJS(args[0]), j)
	if err != nil {
		return js.ValueOf(err.Error())
	}
	return bytesToJS(out)
}

func applyEdits(this js.Value, args []js.Value) any {
	if len(args) < 2 {
		return js.ValueOf("usage: applyEdits(vopl, vpe)")
	}
	out, _, err := api.ApplyEdits(bytesFromJS(args[0]), bytesFromJS(args[1]))
	if err != nil {
		return js.ValueOf(err.Error())
	}
	return bytesToJS(out)
}

func diffVopl(this js.Value, args []js.Value) any {
	if len(args) < 2 {
		return js.ValueOf("usage: diffVopl(from, to)")
	}
	var from []byte
	if !args[0].IsNull() && !args[0].IsUndefined() {
		from = bytesFromJS(args[0])
	}
	out, _, err := api.Diff(from, bytesFromJS(args[1]))
	if err != nil {
		return js.ValueOf(err.Error())
	}
	return bytesToJS(out)
}

func main() {
	js.Global().Set("rle2vopl", js.FuncOf(rle2vopl))
	js.Global().Set("vopl2glb", js.FuncOf(vopl2glb))
	js.Global().Set("fragmentVopl", js.FuncOf(fragment))
	js.Global().Set("raycastVopl", js.FuncOf(raycast))
	js.Global().Set("voplColliders", js.FuncOf(colliders))
	js.Global().Set("packVopls", js.FuncOf(packVopls))
	js.Global().Set("unpackVoplpack", js.FuncOf(unpackVoplpack))
	js.Global().Set("voplpack2glb", js.FuncOf(voplpack2glb))
	js.Global().Set("applyVpe", js.FuncOf(applyEdits))
	js.Global().Set("diffVopl", js.FuncOf(diffVopl))
	select {}
}
