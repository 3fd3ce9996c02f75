// =============================================================================
// 📦 userdatad — 用户数据查询服务守护进程
// =============================================================================
// 将可嵌入的查询服务器包装成独立进程：加载 YAML/环境变量配置、
// 初始化结构化日志、挂载请求日志/限流/指标中间件，并在独立端口
// 暴露 Prometheus 指标与健康检查。
//
// 使用方法:
//
//	userdatad serve                        # 启动服务
//	userdatad serve --config config.yaml   # 指定配置文件
//	userdatad teststorage user_data.db     # 诊断存储文件
//	userdatad health                       # 健康检查
//	userdatad version                      # 显示版本信息
// =============================================================================
package main
