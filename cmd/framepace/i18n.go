// Package main provides localization for the framepace CLI.
package main

import (
	"github.com/ideamans/go-l10n"
)

func init() {
	// Register Japanese translations for CLI messages.
	l10n.Register("ja", l10n.LexiconMap{
		// Root command
		"Decode and present video frames at their timestamps":                                                                  "動画フレームをタイムスタンプどおりにデコード・表示",
		"framepace plays MP4 and GIF files through a bounded decode pipeline, probes their streams and builds contact sheets.": "framepaceは有界デコードパイプラインでMP4とGIFを再生し、ストリームの調査とコンタクトシートの作成を行います。",

		// Global flags
		"YAML configuration file":                      "YAML設定ファイル",
		"Path to the ffmpeg executable used for H.264": "H.264のデコードに使うffmpeg実行ファイルのパス",
		"Log level (debug, info, warn, error)":         "ログレベル（debug, info, warn, error）",
		"Suppress all log output":                      "全てのログ出力を抑制",

		// Play command
		"Play a media file at its own pace":                                          "メディアファイルを本来の速度で再生",
		"Directory to save presented frames as PNG (frames are discarded otherwise)": "表示したフレームをPNGで保存するディレクトリ（未指定時は破棄）",
		"Number of decoded frames buffered ahead of presentation":                    "表示前にバッファするデコード済みフレーム数",
		"Restart from the beginning after the last frame":                            "最終フレームの後に先頭から再生し直す",
		"Exit after this many completed loops (0 = until interrupted with --repeat)": "指定回数のループ完了後に終了（0 = --repeat 指定時は中断まで）",
		"Target display width":                    "表示先の幅",
		"Target display height":                   "表示先の高さ",
		"Scale frames to the target display size": "フレームを表示先のサイズに拡縮",

		// Probe command
		"Show the streams of a media file": "メディアファイルのストリームを表示",
		"Type":                             "種別",
		"Codec":                            "コーデック",
		"Size":                             "サイズ",
		"Time Base":                        "タイムベース",
		"Duration":                         "再生時間",
		"Frames":                           "フレーム数",
		"Selected":                         "選択",

		// Extract command
		"Decode every frame and build a contact sheet":           "全フレームをデコードしてコンタクトシートを作成",
		"Output image path, PNG or JPEG by extension (required)": "出力画像パス、拡張子でPNGかJPEGを選択（必須）",
		"Number of columns (min: 1)":                             "カラム数（最小: 1）",
		"Stop after this many frames (0 = all)":                  "指定フレーム数で停止（0 = 全て）",
		"Overwrite an existing output file":                      "既存の出力ファイルを上書き",
		"%s already exists (use --force to overwrite)":           "%s は既に存在します（上書きするには --force を指定）",
		"Also save every frame as PNG in this directory":         "全フレームをこのディレクトリにPNGでも保存",

		// Version command
		"Show version information": "バージョン情報を表示",
		"framepace version %s":     "framepace バージョン %s",

		// Runtime messages
		"Playing %s":                    "%s を再生中",
		"Presented %d frames":           "%d フレームを表示しました",
		"Saved %d frames to %s":         "%d フレームを %s に保存しました",
		"Contact sheet saved to %s":     "コンタクトシートを %s に保存しました",
		"Interrupted, shutting down...": "中断されました。シャットダウン中...",

		// Error messages
		"Media argument is required": "メディア引数が必要です",
	})
}
