package logger

import "github.com/ideamans/go-l10n"

func init() {
	l10n.Register("ja", l10n.LexiconMap{
		// Player level messages (info)
		"Parsed %s as session %s: %s %dx%d": "%s をセッション %s として解析しました: %s %dx%d",
		"Playback finished: %s":             "再生が終了しました: %s",
		"Source set to %s":                  "ソースを %s に設定しました",

		// Session
		"Opened %s: %s/%s %dx%d, %d frames": "%s を開きました: %s/%s %dx%d, %d フレーム",
		"Pixel converter created for %dx%d": "%dx%d のピクセル変換器を作成しました",

		// Worker
		"Command %s":                       "コマンド %s",
		"Dropped %s: worker stopped":       "%s を破棄しました: ワーカーは停止済みです",
		"Session %s opened %s":             "セッション %s が %s を開きました",
		"Session %s seeked to %d ms":       "セッション %s を %d ms にシークしました",
		"Session %s reached end of stream": "セッション %s がストリームの終端に達しました",
		"Session %s closed":                "セッション %s を閉じました",
		"Session %s: %s":                   "セッション %s: %s",

		// Clock
		"End of stream at %d ms":                       "%d ms でストリームが終了しました",
		"Dropped out-of-order frame %d ms after %d ms": "順序が乱れたフレーム %d ms を破棄しました (直前 %d ms)",

		// Extraction and frame dump
		"Extracting frames from %s (%dx%d)": "%s からフレームを抽出中 (%dx%d)",
		"Extracted %d frames":               "%d フレームを抽出しました",
		"Saved %s":                          "%s を保存しました",

		// Warnings
		"Cannot play: %s":                "再生できません: %s",
		"Failed to open %s: %v":          "%s を開けませんでした: %v",
		"Failed to close session %s: %v": "セッション %s を閉じられませんでした: %v",
		"Failed to save frame %d: %v":    "フレーム %d の保存に失敗しました: %v",

		// Errors
		"Playback failed: %v":   "再生に失敗しました: %v",
		"Session %s failed: %v": "セッション %s でエラーが発生しました: %v",
	})
}
