package app

// Command はアプリケーションの起動モードを表す。
// 1つのバイナリからゲートウェイと3つのバックエンドサービスを起動できる。
type Command string

const (
	// CommandGateway はAPIゲートウェイモードで起動することを示す。
	CommandGateway Command = "gateway"
	// CommandAuth は認証サービスモードで起動することを示す。
	CommandAuth Command = "auth"
	// CommandUser はユーザーサービスモードで起動することを示す。
	CommandUser Command = "user"
	// CommandTask はタスクサービスモードで起動することを示す。
	CommandTask Command = "task"
	// CommandMigrate はデータベースマイグレーションを実行することを示す。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck はヘルスチェックを実行することを示す。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
)

// ParseCommand はコマンドライン引数からサブコマンドを解析する。
// 引数が空またはサポート外のコマンドの場合はCommandGatewayを返す。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandGateway
	}

	switch args[0] {
	case "gateway":
		return CommandGateway
	case "auth":
		return CommandAuth
	case "user":
		return CommandUser
	case "task":
		return CommandTask
	case "migrate":
		return CommandMigrate
	case "healthcheck":
		return CommandHealthcheck
	default:
		return CommandGateway
	}
}
