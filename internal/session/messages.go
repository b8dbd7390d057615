package session

import "fmt"

const (
	stopReasonStopped      = "stopped"
	stopReasonInputEnded   = "input_ended"
	stopReasonCanceled     = "canceled"
	stopReasonDeviceError  = "device_error"
	stopReasonStreamError  = "stream_error"
	stopReasonConfigError  = "config_error"
	stopReasonUnknownError = "unknown_error"

	messagePoweredByLine = "-# *Powered by [Tsuyaku](https://github.com/foxseedlab/tsuyaku)*"

	messageStartChannelTitle     = ":microphone2: **通訳を開始しました。**"
	messageStartDirectionFormat  = "-# %s → %s（%s）"
	messageStopChannelTitle      = ":pause_button:  **通訳を終了しました。**"
	messageAttachmentTitle       = ":page_facing_up:  **文字起こしと翻訳の内容**"
	messageStopStatsFormat       = "-# セグメント数：%d ／ 平均遅延：%dms ／ 平均翻訳時間：%dms"
	messageStopTranslationFailed = "-# 翻訳できなかったセグメントが %d 件あります。"
)

func startDirectionLine(source, target, mode string) string {
	return fmt.Sprintf(messageStartDirectionFormat, source, target, mode)
}

func stopReasonDetail(reason string) string {
	switch reason {
	case stopReasonStopped:
		return "停止操作により終了しました。"
	case stopReasonInputEnded:
		return "音声入力が終了しました。"
	case stopReasonCanceled:
		return "通訳サーバーが閉じられました。"
	case stopReasonDeviceError:
		return "音声デバイスでエラーが発生しました。"
	case stopReasonStreamError:
		return "音声認識サービスとの接続でエラーが発生しました。"
	case stopReasonConfigError:
		return "設定に誤りがあります。"
	default:
		return "不明なエラーが発生しました。"
	}
}
