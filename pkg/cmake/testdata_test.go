package cmake

import (
	"testing/fstest"
	"time"
)

var fixtureTime = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func file(data string) *fstest.MapFile {
	return &fstest.MapFile{Data: []byte(data), ModTime: fixtureTime}
}

func replyPath(name string) string {
	return ReplyDir + "/" + name
}

// twoTargetReplySet is a minimal reply set with an executable depending on a
// static library.
func twoTargetReplySet() fstest.MapFS {
	return fstest.MapFS{
		replyPath("index-2026-03-14T12-00-00-0000.json"): file(`{
			"cmake": {"generator": {"multiConfig": false, "name": "Ninja"}, "version": {"string": "3.28.3"}},
			"objects": [
				{"kind": "cache", "version": {"major": 2}, "jsonFile": "cache-v2-1.json"},
				{"kind": "codemodel", "version": {"major": 2}, "jsonFile": "codemodel-v2-1.json"}
			]
		}`),
		replyPath("codemodel-v2-1.json"): file(`{
			"configurations": [{
				"name": "Release",
				"targets": [
					{"id": "t1", "name": "app", "jsonFile": "target-app-Release-1.json"},
					{"id": "t2", "name": "lib", "jsonFile": "target-lib-Release-2.json"}
				]
			}]
		}`),
		replyPath("target-app-Release-1.json"): file(`{
			"name": "app",
			"type": "EXECUTABLE",
			"artifacts": [{"path": "bin/app"}],
			"dependencies": [{"id": "t2"}]
		}`),
		replyPath("target-lib-Release-2.json"): file(`{
			"name": "lib",
			"type": "STATIC_LIBRARY",
			"artifacts": [{"path": "lib/liblib.a"}]
		}`),
	}
}
