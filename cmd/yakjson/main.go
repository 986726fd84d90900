// yakjson 命令行：格式化、指针查询、批量校验 JSON 文档
package main

import "os"

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}
