// Package config 提供 ssr 的配置管理功能。
//
// 配置文件存储在 ~/.config/save-restore/config.yaml，使用 YAML 格式，
// 以 SSR_ 为前缀的环境变量可覆盖任一键（点号换成下划线）。
// 配置项包括工作副本位置与远程、提交身份、日志、缓存以及传输重试间隔。
package config
